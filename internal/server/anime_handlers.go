package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/gin-gonic/gin"
)

const (
	coverCacheControl = "public, max-age=31536000, immutable"
	exportContentType = "text/csv"
	exportDisposition = `attachment; filename="anime_export.csv"`
)

// recordResponse is a record without its cover blob, flagged when a cover exists.
type recordResponse struct {
	anime.Anime
	HasCover bool `json:"hasCover"`
}

func newRecordResponse(record anime.Anime) recordResponse {
	return recordResponse{Anime: record, HasCover: record.HasCover()}
}

func setETag(c *gin.Context, record anime.Anime) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(record.Version, 10)))
}

func (h *httpHandler) handleListAnime(c *gin.Context) {
	query := anime.ListQuery{
		Filter: anime.Filter{
			Status: c.Query("status"),
			Search: c.Query("search"),
		},
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}

	total, err := h.animeService.Count(c.Request.Context(), query.Filter)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to fetch anime")
		return
	}
	records, err := h.animeService.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to fetch anime")
		return
	}

	response := make([]recordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, newRecordResponse(record))
	}
	c.Header(totalCountHeader, strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleCreateAnime(c *gin.Context) {
	request, err := h.decodeRecordRequest(c)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to create anime")
		return
	}

	record, err := h.animeService.Create(c.Request.Context(), request.Fields)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to create anime")
		return
	}
	setETag(c, record)
	c.JSON(http.StatusCreated, newRecordResponse(record))
}

func (h *httpHandler) handleUpdateAnime(c *gin.Context) {
	request, err := h.decodeRecordRequest(c)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to update anime")
		return
	}

	record, err := h.animeService.Update(c.Request.Context(), c.Param("id"), request.Fields, request.ExpectedVersion)
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to update anime")
		return
	}
	setETag(c, record)
	c.JSON(http.StatusOK, newRecordResponse(record))
}

func (h *httpHandler) handleDeleteAnime(c *gin.Context) {
	if err := h.animeService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to delete anime")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleAnimeDetails(c *gin.Context) {
	record, err := h.animeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to fetch anime")
		return
	}
	setETag(c, record)
	c.JSON(http.StatusOK, newRecordResponse(record))
}

func (h *httpHandler) handleCoverImage(c *gin.Context) {
	cover, err := h.animeService.GetCoverImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, messageImageNotFound, "Failed to fetch image")
		return
	}
	c.Header("Cache-Control", coverCacheControl)
	c.Data(http.StatusOK, cover.ContentType, cover.Data)
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.animeService.GetStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleExportCSV(c *gin.Context) {
	document, err := h.animeService.ExportCSV(c.Request.Context(), anime.Filter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		h.respondError(c, err, messageAnimeNotFound, "Failed to export CSV")
		return
	}
	c.Header("Content-Disposition", exportDisposition)
	c.Data(http.StatusOK, exportContentType, document)
}

// queryInt returns zero for absent or malformed values so the service defaults apply.
func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return value
}
