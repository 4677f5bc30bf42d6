package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"
)

// maxErrBodySize caps the amount of response body read when
// classifying a non-2xx response.
const maxErrBodySize = 64 << 10 // 64KB

// ResponseKind declares how a successful response body is decoded.
type ResponseKind int

const (
	KindJSON ResponseKind = iota
	KindText
	KindBinary
	KindStream
)

func (k ResponseKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindStream:
		return "stream"
	default:
		return "json"
	}
}

// allowedMethods is the closed set of methods a RequestSpec may use.
var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// RequestSpec describes one logical call. Query values are scalars or
// lists of scalars; lists are sent as repeated keys.
type RequestSpec struct {
	Method   string
	Path     string
	Query    map[string]any
	Body     Body
	Headers  http.Header
	Response ResponseKind
}

// Body is the outgoing payload: a [JSONBody], a [*MultipartBody], or nil
// for no body.
type Body interface {
	// encode returns the wire bytes and the content type to send, if any.
	encode() ([]byte, string, error)
}

// JSONBody is a payload sent as application/json.
type JSONBody struct {
	Value any
}

func (b JSONBody) encode() ([]byte, string, error) {
	payload, err := json.Marshal(b.Value)
	if err != nil {
		return nil, "", fmt.Errorf("encoding request payload: %w", err)
	}
	return payload, "application/json", nil
}

// MultipartBody is a fully buffered multipart/form-data payload, so it
// can be replayed on retries.
type MultipartBody struct {
	contentType string
	payload     []byte
}

func (b *MultipartBody) encode() ([]byte, string, error) {
	return b.payload, b.contentType, nil
}

// ContentType returns the boundary-bearing content type.
func (b *MultipartBody) ContentType() string {
	return b.contentType
}

// FormFile is a file part of a multipart body.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// NewMultipart buffers fields and files into a multipart body.
func NewMultipart(fields map[string]string, files ...FormFile) (*MultipartBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	for _, f := range files {
		if f.Field == "" || f.Content == nil {
			return nil, fmt.Errorf("file part %q: field and content are required", f.Filename)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copying part %s: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	return &MultipartBody{contentType: w.FormDataContentType(), payload: buf.Bytes()}, nil
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	RequestID  string

	// Body holds the raw bytes for every kind.
	Body []byte

	// Data is the parsed JSON value (or the raw text when parsing fails)
	// for KindJSON, the text for KindText, and nil for KindBinary.
	Data any
}

// Decode unmarshals the JSON body into dst.
func (r *Response) Decode(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}

func decodeData(kind ResponseKind, body []byte) any {
	switch kind {
	case KindText:
		return string(body)
	case KindBinary:
		return nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// resolveURL joins base and path and appends the encoded query.
func resolveURL(base, path string, query map[string]any) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	if len(query) == 0 {
		return u, nil
	}

	values := u.Query()
	for k, v := range query {
		rv := reflect.ValueOf(v)
		for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && !rv.IsNil() {
			rv = rv.Elem()
		}
		if !rv.IsValid() || ((rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil()) {
			continue
		}

		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := range rv.Len() {
				values.Add(k, fmt.Sprint(rv.Index(i).Interface()))
			}
			continue
		}
		values.Add(k, fmt.Sprint(rv.Interface()))
	}
	u.RawQuery = values.Encode()

	return u, nil
}
