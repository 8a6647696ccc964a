package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	credential := bearerToken(r.Header.Get("Authorization"))
	if credential == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing API key"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no file uploaded"})
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	language := strings.TrimSpace(r.FormValue("language"))
	if language == "" {
		language = DefaultLanguage
	}

	s.cfg.Logger.Info("forwarding upload",
		zap.String("file", header.Filename),
		zap.Int64("bytes", header.Size),
		zap.String("language", language),
	)

	status, contentType, payload, err := s.forward(r, credential, file, header, language)
	if err != nil {
		s.cfg.Logger.Error("relay request failed", zap.String("file", header.Filename), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	if status < 200 || status > 299 {
		s.cfg.Logger.Warn("provider rejected upload", zap.String("file", header.Filename), zap.Int("status", status))
	}

	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// forward posts the upload to the provider and returns its reply untouched.
func (s *Server) forward(r *http.Request, credential string, file multipart.File, header *multipart.FileHeader, language string) (int, string, []byte, error) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, header.Filename))
	fileType := header.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	partHeader.Set("Content-Type", fileType)

	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, "", nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.WriteField("model", s.cfg.Model); err != nil {
		return 0, "", nil, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.WriteField("language", language); err != nil {
		return 0, "", nil, fmt.Errorf("write language field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, "", nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.UpstreamURL, body)
	if err != nil {
		return 0, "", nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, fmt.Errorf("read upstream response: %w", err)
	}

	return resp.StatusCode, resp.Header.Get("Content-Type"), payload, nil
}

func bearerToken(header string) string {
	const scheme = "bearer"

	header = strings.TrimSpace(header)
	if len(header) >= len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		if len(header) == len(scheme) {
			return ""
		}
		if header[len(scheme)] == ' ' {
			header = header[len(scheme):]
		}
	}
	return strings.TrimSpace(header)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
