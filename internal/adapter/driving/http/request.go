package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	maxBodyBytes    = 1 << 20
	maxWebhookBytes = 25 << 20
)

var errInvalidID = errors.New("invalid id")

// formDecoder is implemented by request bodies that can also be posted as
// HTML form values.
type formDecoder interface {
	fromForm(v url.Values) error
}

type submissionRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
	Phone   string `json:"phone"`
}

func (s *submissionRequest) fromForm(v url.Values) error {
	s.Email = v.Get("email")
	s.Message = v.Get("message")
	s.Phone = v.Get("phone")
	return nil
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (c *categoryRequest) fromForm(v url.Values) error {
	c.Name = v.Get("name")
	return nil
}

type linkRequest struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Href       string `json:"href"`
	CategoryID int64  `json:"category_id"`
}

func (l *linkRequest) fromForm(v url.Values) error {
	l.Name = v.Get("name")
	l.Href = v.Get("href")

	var err error
	if s := v.Get("id"); s != "" {
		if l.ID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return errInvalidID
		}
	}
	if s := v.Get("category_id"); s != "" {
		if l.CategoryID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return errors.New("invalid category_id")
		}
	}
	return nil
}

// isFormPost reports whether the body is HTML form encoded.
func isFormPost(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

// decodeBody fills dst from a JSON body or from form values.
func decodeBody(w http.ResponseWriter, r *http.Request, dst formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if isFormPost(r) {
		if err := parseForm(r); err != nil {
			return err
		}
		return dst.fromForm(r.PostForm)
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// readID accepts a form value, a JSON object with an id field or a bare
// JSON integer.
func readID(w http.ResponseWriter, r *http.Request) (int64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isFormPost(r) {
		if err := parseForm(r); err != nil {
			return 0, err
		}
		id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
		if err != nil {
			return 0, errInvalidID
		}
		return id, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return 0, err
	}
	body = bytes.TrimSpace(body)

	var bare int64
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var obj struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &obj); err != nil || obj.ID == nil {
		return 0, errInvalidID
	}
	return *obj.ID, nil
}
