package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
)

func TestCreateAnimeFromJSONTrimsTitle(testContext *testing.T) {
	server := newTestServer(testContext)

	recorder := server.doJSON(http.MethodPost, "/anime", `{"title":"  Frieren  ","episodes":28,"status":"completed","rating":10,"favorite":true}`)
	if recorder.Code != http.StatusCreated {
		testContext.Fatalf("expected status %d, got %d (%s)", http.StatusCreated, recorder.Code, recorder.Body.String())
	}

	record := decodeRecord(testContext, recorder)
	if record.Title != "Frieren" {
		testContext.Fatalf("expected trimmed title, got %q", record.Title)
	}
	if record.ID != "anime-001" || record.Version != 1 {
		testContext.Fatalf("unexpected identity: id=%s version=%d", record.ID, record.Version)
	}
	if record.Status != anime.StatusCompleted || !record.Favorite || record.HasCover {
		testContext.Fatalf("unexpected record: %+v", record)
	}
	if !record.CreatedAt.Equal(fixedNow) || !record.UpdatedAt.Equal(fixedNow) {
		testContext.Fatalf("expected server-assigned timestamps, got %v / %v", record.CreatedAt, record.UpdatedAt)
	}
	if recorder.Header().Get("ETag") != `"1"` {
		testContext.Fatalf("expected ETag \"1\", got %q", recorder.Header().Get("ETag"))
	}
}

func TestCreateAnimeRejectsBlankTitle(testContext *testing.T) {
	server := newTestServer(testContext)

	recorder := server.doJSON(http.MethodPost, "/anime", `{"title":"   "}`)
	if recorder.Code != http.StatusBadRequest {
		testContext.Fatalf("expected bad request, got %d", recorder.Code)
	}
	expected := `{"code":"anime.create.invalid_title","error":"Title is required"}`
	if recorder.Body.String() != expected {
		testContext.Fatalf("unexpected response body: %s", recorder.Body.String())
	}

	list := server.doJSON(http.MethodGet, "/anime", "")
	if list.Header().Get(totalCountHeader) != "0" {
		testContext.Fatalf("expected no records to be created, got count %q", list.Header().Get(totalCountHeader))
	}
}

func TestCreateAnimeFromMultipartStoresCover(testContext *testing.T) {
	server := newTestServer(testContext)
	imageBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	request := newMultipartRequest(testContext, http.MethodPost, "/anime", map[string]string{
		"title":    "Vinland Saga",
		"episodes": "48",
		"status":   "Plan to Watch",
		"rating":   "",
		"favorite": "true",
		"notes":    "Season 2 is a character study.",
	}, formFile{field: coverFormField, filename: "cover.png", contentType: "image/png", data: imageBytes})

	recorder := server.do(request)
	if recorder.Code != http.StatusCreated {
		testContext.Fatalf("expected status %d, got %d (%s)", http.StatusCreated, recorder.Code, recorder.Body.String())
	}
	record := decodeRecord(testContext, recorder)
	if record.Episodes != 48 || record.Status != anime.StatusPlan || record.Rating != 0 || !record.Favorite || !record.HasCover {
		testContext.Fatalf("unexpected record: %+v", record)
	}

	cover := server.doJSON(http.MethodGet, "/anime/"+record.ID, "")
	if cover.Code != http.StatusOK {
		testContext.Fatalf("expected cover status 200, got %d", cover.Code)
	}
	if !bytes.Equal(cover.Body.Bytes(), imageBytes) {
		testContext.Fatalf("cover bytes were not stored verbatim")
	}
	if cover.Header().Get("Content-Type") != "image/png" {
		testContext.Fatalf("unexpected content type %q", cover.Header().Get("Content-Type"))
	}
	if cover.Header().Get("Cache-Control") != coverCacheControl {
		testContext.Fatalf("unexpected cache control %q", cover.Header().Get("Cache-Control"))
	}
}

func TestCreateAnimeRejectsMalformedFormNumber(testContext *testing.T) {
	server := newTestServer(testContext)

	request := newMultipartRequest(testContext, http.MethodPost, "/anime", map[string]string{
		"title":    "Mushishi",
		"episodes": "twenty-six",
	})
	recorder := server.do(request)
	if recorder.Code != http.StatusBadRequest {
		testContext.Fatalf("expected bad request, got %d", recorder.Code)
	}
	expected := `{"code":"request.invalid_episodes","error":"Episodes must be a whole number"}`
	if recorder.Body.String() != expected {
		testContext.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestCoverImageMissingReturnsNotFound(testContext *testing.T) {
	server := newTestServer(testContext)
	created := decodeRecord(testContext, server.doJSON(http.MethodPost, "/anime", `{"title":"Oshi no Ko"}`))

	for _, target := range []string{"/anime/" + created.ID, "/anime/unknown"} {
		recorder := server.doJSON(http.MethodGet, target, "")
		if recorder.Code != http.StatusNotFound {
			testContext.Fatalf("%s: expected not found, got %d", target, recorder.Code)
		}
		if decodeObject(testContext, recorder)["error"] != messageImageNotFound {
			testContext.Fatalf("%s: unexpected body %s", target, recorder.Body.String())
		}
	}
}

func TestUpdateAnimeChangesOnlySuppliedFields(testContext *testing.T) {
	server := newTestServer(testContext)
	created := decodeRecord(testContext, server.doJSON(http.MethodPost, "/anime",
		`{"title":"Jujutsu Kaisen","episodes":47,"status":"WATCHING","rating":9,"notes":"Hype.","favorite":true}`))

	recorder := server.doJSON(http.MethodPut, "/anime/"+created.ID, `{"rating":7}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	updated := decodeRecord(testContext, recorder)
	if updated.Rating != 7 {
		testContext.Fatalf("expected rating 7, got %d", updated.Rating)
	}
	if updated.Title != created.Title || updated.Episodes != created.Episodes || updated.Status != created.Status ||
		updated.NotesText() != created.NotesText() || updated.Favorite != created.Favorite {
		testContext.Fatalf("unsupplied fields changed: before=%+v after=%+v", created.Anime, updated.Anime)
	}
	if updated.Version != created.Version+1 {
		testContext.Fatalf("expected version %d, got %d", created.Version+1, updated.Version)
	}

	details := decodeRecord(testContext, server.doJSON(http.MethodGet, "/anime/"+created.ID+"/details", ""))
	if details.Rating != 7 || details.Version != updated.Version {
		testContext.Fatalf("details do not reflect update: %+v", details.Anime)
	}
}

func TestUpdateAnimeNullNotesClearsNotes(testContext *testing.T) {
	server := newTestServer(testContext)
	created := decodeRecord(testContext, server.doJSON(http.MethodPost, "/anime", `{"title":"Yuru Camp","notes":"calm"}`))

	kept := decodeRecord(testContext, server.doJSON(http.MethodPut, "/anime/"+created.ID, `{"rating":5}`))
	if kept.NotesText() != "calm" {
		testContext.Fatalf("omitted notes must be kept, got %q", kept.NotesText())
	}

	recorder := server.doJSON(http.MethodPut, "/anime/"+created.ID, `{"notes":null}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d (%s)", recorder.Code, recorder.Body.String())
	}
	cleared := decodeRecord(testContext, recorder)
	if cleared.Notes != nil {
		testContext.Fatalf("expected notes to be cleared, got %q", *cleared.Notes)
	}
	if cleared.Rating != 5 {
		testContext.Fatalf("expected rating to survive, got %d", cleared.Rating)
	}
}

func TestUpdateAnimeHonoursIfMatch(testContext *testing.T) {
	server := newTestServer(testContext)
	created := decodeRecord(testContext, server.doJSON(http.MethodPost, "/anime", `{"title":"Mob Psycho 100"}`))

	first := httptest.NewRequest(http.MethodPut, "/anime/"+created.ID, strings.NewReader(`{"episodes":12}`))
	first.Header.Set("Content-Type", "application/json")
	first.Header.Set(ifMatchHeader, `"1"`)
	if recorder := server.do(first); recorder.Code != http.StatusOK {
		testContext.Fatalf("expected first update to succeed, got %d (%s)", recorder.Code, recorder.Body.String())
	}

	stale := httptest.NewRequest(http.MethodPut, "/anime/"+created.ID, strings.NewReader(`{"episodes":13}`))
	stale.Header.Set("Content-Type", "application/json")
	stale.Header.Set(ifMatchHeader, `"1"`)
	recorder := server.do(stale)
	if recorder.Code != http.StatusConflict {
		testContext.Fatalf("expected conflict, got %d", recorder.Code)
	}
	if decodeObject(testContext, recorder)["code"] != "anime.update.version_conflict" {
		testContext.Fatalf("unexpected body: %s", recorder.Body.String())
	}

	bodyVersion := server.doJSON(http.MethodPut, "/anime/"+created.ID, `{"episodes":13,"version":2}`)
	if bodyVersion.Code != http.StatusOK {
		testContext.Fatalf("expected body version update to succeed, got %d (%s)", bodyVersion.Code, bodyVersion.Body.String())
	}
}

func TestUpdateAnimeUnknownIDReturnsNotFound(testContext *testing.T) {
	server := newTestServer(testContext)

	recorder := server.doJSON(http.MethodPut, "/anime/missing", `{"rating":7}`)
	if recorder.Code != http.StatusNotFound {
		testContext.Fatalf("expected not found, got %d", recorder.Code)
	}
	expected := `{"code":"anime.update.not_found","error":"Anime not found"}`
	if recorder.Body.String() != expected {
		testContext.Fatalf("unexpected response body: %s", recorder.Body.String())
	}
}

func TestDeleteAnimeThenLookupFails(testContext *testing.T) {
	server := newTestServer(testContext)
	created := decodeRecord(testContext, server.doJSON(http.MethodPost, "/anime", `{"title":"Bocchi the Rock!"}`))

	recorder := server.doJSON(http.MethodDelete, "/anime/"+created.ID, "")
	if recorder.Code != http.StatusOK || recorder.Body.String() != `{"success":true}` {
		testContext.Fatalf("unexpected delete response: %d %s", recorder.Code, recorder.Body.String())
	}

	for _, request := range []struct{ method, target string }{
		{http.MethodDelete, "/anime/" + created.ID},
		{http.MethodGet, "/anime/" + created.ID + "/details"},
	} {
		recorder := server.doJSON(request.method, request.target, "")
		if recorder.Code != http.StatusNotFound {
			testContext.Fatalf("%s %s: expected not found, got %d", request.method, request.target, recorder.Code)
		}
	}
}

func TestListAnimeFiltersAndCounts(testContext *testing.T) {
	server := newTestServer(testContext)
	server.doJSON(http.MethodPost, "/anime", `{"title":"Frieren","status":"COMPLETED"}`)
	server.doJSON(http.MethodPost, "/anime", `{"title":"Jujutsu Kaisen","status":"WATCHING"}`)
	server.doJSON(http.MethodPost, "/anime", `{"title":"Vinland Saga","status":"COMPLETED"}`)

	recorder := server.doJSON(http.MethodGet, "/anime?status=COMPLETED&sort=title&pageSize=1", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if recorder.Header().Get(totalCountHeader) != "2" {
		testContext.Fatalf("expected total count 2, got %q", recorder.Header().Get(totalCountHeader))
	}
	if !strings.Contains(recorder.Body.String(), `"title":"Vinland Saga"`) || strings.Contains(recorder.Body.String(), "Frieren") {
		testContext.Fatalf("unexpected page: %s", recorder.Body.String())
	}

	search := server.doJSON(http.MethodGet, "/anime?search=KAISEN&status=all", "")
	if search.Header().Get(totalCountHeader) != "1" {
		testContext.Fatalf("expected one search hit, got %q", search.Header().Get(totalCountHeader))
	}

	invalid := server.doJSON(http.MethodGet, "/anime?status=BINGING", "")
	if invalid.Code != http.StatusBadRequest {
		testContext.Fatalf("expected bad request for unknown status, got %d", invalid.Code)
	}
}

func TestListAnimePageBeyondRangeIsEmpty(testContext *testing.T) {
	server := newTestServer(testContext)
	server.doJSON(http.MethodPost, "/anime", `{"title":"Frieren"}`)

	for _, page := range []string{"2", "9223372036854775807"} {
		recorder := server.doJSON(http.MethodGet, "/anime?page="+page, "")
		if recorder.Code != http.StatusOK {
			testContext.Fatalf("page %s: expected status 200, got %d", page, recorder.Code)
		}
		if strings.TrimSpace(recorder.Body.String()) != "[]" {
			testContext.Fatalf("page %s: expected empty page, got %s", page, recorder.Body.String())
		}
		if recorder.Header().Get(totalCountHeader) != "1" {
			testContext.Fatalf("page %s: expected total count 1, got %q", page, recorder.Header().Get(totalCountHeader))
		}
	}
}

func TestStatsOnEmptyStore(testContext *testing.T) {
	server := newTestServer(testContext)

	recorder := server.doJSON(http.MethodGet, "/stats", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d", recorder.Code)
	}
	expected := `{"total":0,"completed":0,"averageRating":0,"topFavorites":[]}`
	if recorder.Body.String() != expected {
		testContext.Fatalf("unexpected stats body: %s", recorder.Body.String())
	}
}

func TestExportCSVSetsDownloadHeaders(testContext *testing.T) {
	server := newTestServer(testContext)
	server.doJSON(http.MethodPost, "/anime", `{"title":"Frieren","notes":"hello, \"world\""}`)

	recorder := server.doJSON(http.MethodGet, "/export.csv?status=all", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if recorder.Header().Get("Content-Type") != exportContentType {
		testContext.Fatalf("unexpected content type %q", recorder.Header().Get("Content-Type"))
	}
	if recorder.Header().Get("Content-Disposition") != exportDisposition {
		testContext.Fatalf("unexpected disposition %q", recorder.Header().Get("Content-Disposition"))
	}
	lines := strings.Split(recorder.Body.String(), "\n")
	if lines[0] != strings.Join(anime.ExportColumns, ",") {
		testContext.Fatalf("unexpected header row %q", lines[0])
	}
	if len(lines) != 2 || !strings.Contains(lines[1], `"hello, ""world"""`) {
		testContext.Fatalf("unexpected export body: %q", recorder.Body.String())
	}
}
