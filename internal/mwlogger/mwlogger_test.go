package mwlogger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestNewMWLogger(t *testing.T) {
	tests := []struct {
		name      string
		reqID     string
		status    int
		wantSame  bool
		writeBody bool
	}{
		{name: "generates request id", status: http.StatusCreated},
		{name: "keeps incoming request id", reqID: "abc-123", status: http.StatusOK, wantSame: true},
		{name: "implicit 200", writeBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxLogger bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, ctxLogger = r.Context().Value(loggerWithRequestID{}).(zlog.Zerolog)
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				if tt.writeBody {
					_, _ = w.Write([]byte("pong"))
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.reqID != "" {
				req.Header.Set(RequestIDHeader, tt.reqID)
			}
			rec := httptest.NewRecorder()

			NewMWLogger(next).ServeHTTP(rec, req)

			require.True(t, ctxLogger, "logger must be in request context")
			got := rec.Header().Get(RequestIDHeader)
			require.NotEmpty(t, got)
			if tt.wantSame {
				require.Equal(t, tt.reqID, got)
			}
		})
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("job", "42").Logger()

	ctx := WithLogger(context.Background(), logger)
	l := LoggerFromContext(ctx)
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), `"job":"42"`)

	// без логгера в контексте - глобальный
	require.NotPanics(t, func() {
		l := LoggerFromContext(context.Background())
		l.Debug().Msg("noop")
	})
}
