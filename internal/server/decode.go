package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const coverFormField = "cover"

type payloadKind int

const (
	payloadJSON payloadKind = iota
	payloadMultipart
	payloadURLEncoded
)

// recordRequest is the canonical result of decoding a create or update body.
type recordRequest struct {
	Fields          anime.Fields
	ExpectedVersion *int64
}

type jsonRecordPayload struct {
	Title    *string        `json:"title"`
	Episodes *int           `json:"episodes"`
	Status   *string        `json:"status"`
	Rating   *int           `json:"rating"`
	Notes    nullableString `json:"notes"`
	Favorite *bool          `json:"favorite"`
	Version  *int64         `json:"version"`
}

// nullableString tells an explicit JSON null apart from an omitted key.
type nullableString struct {
	Present bool
	Value   *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Present = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	n.Value = &value
	return nil
}

// formRecordPayload holds raw form strings; nil means the key was not sent.
type formRecordPayload struct {
	Title    *string `form:"title"`
	Episodes *string `form:"episodes"`
	Status   *string `form:"status"`
	Rating   *string `form:"rating"`
	Notes    *string `form:"notes"`
	Favorite *string `form:"favorite"`
	Version  *string `form:"version"`
}

func detectPayloadKind(contentType string) payloadKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return payloadJSON
	}
	switch strings.ToLower(mediaType) {
	case "multipart/form-data":
		return payloadMultipart
	case "application/x-www-form-urlencoded":
		return payloadURLEncoded
	default:
		return payloadJSON
	}
}

// decodeRecordRequest accepts JSON, multipart or urlencoded bodies and reduces them to
// one field set. An If-Match header takes precedence over a version field in the body.
func (h *httpHandler) decodeRecordRequest(c *gin.Context) (recordRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var (
		request recordRequest
		err     error
	)
	switch detectPayloadKind(c.GetHeader("Content-Type")) {
	case payloadMultipart:
		var payload formRecordPayload
		if bindErr := c.ShouldBindWith(&payload, binding.FormMultipart); bindErr != nil {
			return recordRequest{}, malformedBody(bindErr)
		}
		cover, coverErr := c.FormFile(coverFormField)
		if coverErr != nil && !errors.Is(coverErr, http.ErrMissingFile) {
			return recordRequest{}, malformedBody(coverErr)
		}
		request, err = decodeFormPayload(payload, cover)
	case payloadURLEncoded:
		var payload formRecordPayload
		if bindErr := c.ShouldBindWith(&payload, binding.FormPost); bindErr != nil {
			return recordRequest{}, malformedBody(bindErr)
		}
		request, err = decodeFormPayload(payload, nil)
	default:
		request, err = decodeJSONPayload(c)
	}
	if err != nil {
		return recordRequest{}, err
	}

	if header := strings.TrimSpace(c.GetHeader(ifMatchHeader)); header != "" {
		version, err := parseVersion(header)
		if err != nil {
			return recordRequest{}, err
		}
		request.ExpectedVersion = &version
	}
	return request, nil
}

func malformedBody(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return &requestError{code: "request.malformed_body", err: &anime.ValidationError{Field: "body", Message: "Malformed request body"}}
}

func decodeJSONPayload(c *gin.Context) (recordRequest, error) {
	var payload jsonRecordPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return recordRequest{}, nil
		}
		return recordRequest{}, malformedBody(err)
	}
	return payload.toRequest(), nil
}

func (payload jsonRecordPayload) toRequest() recordRequest {
	request := recordRequest{
		Fields: anime.Fields{
			Title:    payload.Title,
			Episodes: payload.Episodes,
			Status:   payload.Status,
			Rating:   payload.Rating,
			Favorite: payload.Favorite,
		},
		ExpectedVersion: payload.Version,
	}
	if payload.Notes.Present {
		notes := ""
		if payload.Notes.Value != nil {
			notes = *payload.Notes.Value
		}
		request.Fields.Notes = &notes
	}
	return request
}

// decodeFormPayload coerces form strings. Keys that are absent stay unset; blank
// numeric, status and flag values are treated as absent, while a blank notes value clears the notes.
func decodeFormPayload(payload formRecordPayload, cover *multipart.FileHeader) (recordRequest, error) {
	var request recordRequest

	if payload.Title != nil {
		title := *payload.Title
		request.Fields.Title = &title
	}
	if raw := trimmedFormValue(payload.Episodes); raw != "" {
		episodes, err := strconv.Atoi(raw)
		if err != nil {
			return recordRequest{}, newFieldError("episodes", "Episodes must be a whole number")
		}
		request.Fields.Episodes = &episodes
	}
	if raw := trimmedFormValue(payload.Status); raw != "" {
		request.Fields.Status = &raw
	}
	if raw := trimmedFormValue(payload.Rating); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			return recordRequest{}, newFieldError("rating", "Rating must be a whole number")
		}
		request.Fields.Rating = &rating
	}
	if payload.Notes != nil {
		notes := *payload.Notes
		request.Fields.Notes = &notes
	}
	if raw := trimmedFormValue(payload.Favorite); raw != "" {
		favorite, err := parseFormBool(raw)
		if err != nil {
			return recordRequest{}, newFieldError("favorite", "Favorite must be true or false")
		}
		request.Fields.Favorite = &favorite
	}
	if raw := trimmedFormValue(payload.Version); raw != "" {
		version, err := parseVersion(raw)
		if err != nil {
			return recordRequest{}, err
		}
		request.ExpectedVersion = &version
	}

	if cover != nil && cover.Size > 0 {
		image, err := readCover(cover)
		if err != nil {
			return recordRequest{}, err
		}
		request.Fields.Cover = &image
	}
	return request, nil
}

func trimmedFormValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func readCover(header *multipart.FileHeader) (anime.CoverImage, error) {
	file, err := header.Open()
	if err != nil {
		return anime.CoverImage{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return anime.CoverImage{}, err
	}
	return anime.CoverImage{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}

func parseFormBool(raw string) (bool, error) {
	if strings.EqualFold(raw, "on") {
		return true, nil
	}
	return strconv.ParseBool(raw)
}

// parseVersion accepts a bare number or an entity tag such as W/"3".
func parseVersion(raw string) (int64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "W/")
	trimmed = strings.Trim(trimmed, `"`)
	version, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || version < 1 {
		return 0, newFieldError("version", "Version must be a positive whole number")
	}
	return version, nil
}
