package projection

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httperr "github.com/aevon-lab/fsevents/internal/core/errors"
	"github.com/aevon-lab/fsevents/internal/core/storage"
	storagemocks "github.com/aevon-lab/fsevents/internal/mocks/storage"
)

func TestService_Handlers_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedType   string
		configure      func(store *storagemocks.FlushStore)
	}{
		{
			name:           "non numeric subscription id returns 400",
			url:            "/v1/subscriptions/abc/flushes",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidJsonError,
			configure:      func(_ *storagemocks.FlushStore) {},
		},
		{
			name:           "limit out of range returns 400",
			url:            "/v1/subscriptions/1/flushes?limit=5000",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidJsonError,
			configure:      func(_ *storagemocks.FlushStore) {},
		},
		{
			name:           "store error returns 500",
			url:            "/v1/subscriptions/1/summary",
			expectedStatus: http.StatusInternalServerError,
			expectedType:   httperr.HttpInternalError,
			configure: func(store *storagemocks.FlushStore) {
				store.EXPECT().
					SummarizeSubscription(mock.Anything, int64(1)).
					Return(nil, fmt.Errorf("db failure")).
					Once()
			},
		},
		{
			name:           "list returns 200",
			url:            "/v1/subscriptions/7/flushes?limit=5",
			expectedStatus: http.StatusOK,
			configure: func(store *storagemocks.FlushStore) {
				store.EXPECT().
					ListFlushes(mock.Anything, int64(7), 5).
					Return([]storage.FlushRecord{}, nil).
					Once()
			},
		},
		{
			name:           "file history returns 200",
			url:            "/v1/files/file-a/flushes",
			expectedStatus: http.StatusOK,
			configure: func(store *storagemocks.FlushStore) {
				store.EXPECT().
					ListFileFlushes(mock.Anything, "file-a", defaultLimit).
					Return(nil, nil).
					Once()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := storagemocks.NewFlushStore(t)
			tc.configure(store)

			r := gin.New()
			NewService(store).RegisterRoutes(r)

			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)

			if tc.expectedType != "" {
				var body httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
				require.Equal(t, tc.expectedType, body.ErrorType)
			}
		})
	}
}

func TestService_Handlers_JournalDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewService(nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/v1/subscriptions/1/summary", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
