package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/protocol"
)

// EchoHandler is a stub remote inference endpoint. It accepts the JSON
// predict request on any path and answers with the submitted WAV unchanged.
func EchoHandler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "echo"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		requestID := r.Header.Get(protocol.HeaderRequestID)
		if requestID != "" {
			w.Header().Set(protocol.HeaderRequestID, requestID)
		}

		req, err := protocol.DecodePredictRequest(r.Body)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, protocol.ErrInvalidRequest) {
				status = http.StatusBadRequest
			}
			logger.Warn("Rejected predict request",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
			http.Error(w, err.Error(), status)
			return
		}

		wav := req.Audio()
		_, info, err := audio.DecodeWAV(wav)
		if err != nil {
			http.Error(w, "Invalid WAV payload: "+err.Error(), http.StatusBadRequest)
			return
		}

		logger.Info("Echoing predict request",
			slog.String("request_id", requestID),
			slog.String("path", r.URL.Path),
			slog.String("file", req.Data[0].Name),
			slog.Int("sample_rate", info.SampleRate),
			slog.Int("channels", info.Channels),
			slog.Float64("duration_seconds", info.Duration),
		)

		w.Header().Set("Content-Type", protocol.ContentTypeWAV)
		w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(wav)
	})
}
