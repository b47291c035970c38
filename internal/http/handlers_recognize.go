package http

import (
	"io"
	"log/slog"
	"net/http"
)

// maxRecognizeUpload caps meter photo uploads at 10 MB
const maxRecognizeUpload = 10 << 20

// handleRecognize accepts a meter photo and responds with the extracted
// reading as plain text. An empty body means nothing could be read and the
// user should type the value in.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRecognizeUpload)
	if err := r.ParseMultipartForm(maxRecognizeUpload); err != nil {
		BadRequestError("Invalid upload").Write(w)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		BadRequestError("Missing image file").Write(w)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		BadRequestError("Could not read image").Write(w)
		return
	}

	// Recognition failures degrade to an empty reading: the user types the
	// value in by hand, the billing path never sees the error.
	reading, err := s.recognizer.Recognize(r.Context(), image)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recognize error", "error", err, "image_bytes", len(image))
		reading = ""
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reading))
}
