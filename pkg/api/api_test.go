package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/engine"
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/podconfig"
)

type APITestSuite struct {
	suite.Suite
	eng *fakeEngine
	srv *Server
}

// fakeEngine resolves patches against the defaults without any side effects.
type fakeEngine struct {
	state   *engine.State
	err     error
	patches []podconfig.Overrides
	resets  int
}

func (f *fakeEngine) Current() *engine.State { return f.state }

func (f *fakeEngine) Status() engine.Status {
	return engine.Status{Revision: f.state.Revision, Applies: 3, Failures: 1, LastError: "boom"}
}

func (f *fakeEngine) Update(_ context.Context, patch podconfig.Overrides) (*engine.State, error) {
	f.patches = append(f.patches, patch)
	if f.err != nil {
		return nil, f.err
	}
	merged := f.state.Overrides.Merge(patch)
	ent, err := podconfig.ResolveDefaults(merged)
	if err != nil {
		return nil, err
	}
	f.state = &engine.State{Revision: "r2", Overrides: merged, Entity: ent}
	return f.state, nil
}

func (f *fakeEngine) Reset(context.Context) (*engine.State, error) {
	f.resets++
	if f.err != nil {
		return nil, f.err
	}
	f.state = &engine.State{Revision: "r3", Entity: podconfig.Defaults()}
	return f.state, nil
}

func (s *APITestSuite) SetupTest() {
	ent := podconfig.Defaults()
	ent.Domain = jid.MustDomain("example.org")
	s.eng = &fakeEngine{state: &engine.State{
		Revision:  "r1",
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Overrides: podconfig.Overrides{Domain: podconfig.Ptr("example.org")},
		Entity:    ent,
	}}
	s.srv = New(s.eng)
}

func (s *APITestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) TestGetSettings() {
	rec := s.do(http.MethodGet, "/v1/settings", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))

	var resp SettingsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("r1", resp.Revision)
	s.Equal("example.org", *resp.Overrides.Domain)
	s.Equal(s.eng.state.Entity, resp.Settings)

	// unit values travel in their literal form
	s.Contains(rec.Body.String(), `"message_archive_retention":"P1Y"`)
	s.Contains(rec.Body.String(), `"file_storage_retention":"infinite"`)
}

func (s *APITestSuite) TestPutSettings() {
	rec := s.do(http.MethodPut, "/v1/settings", `{"federation_enabled": true, "file_size_limit": "20MB"}`)

	s.Equal(http.StatusOK, rec.Code)
	s.Require().Len(s.eng.patches, 1)
	s.True(*s.eng.patches[0].FederationEnabled)
	s.Nil(s.eng.patches[0].MFARequired)

	var resp SettingsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Settings.FederationEnabled)
	s.Equal("20MB", resp.Settings.FileSizeLimit.String())
}

func (s *APITestSuite) TestPutErrors() {
	testCases := []struct {
		name       string
		body       string
		engineErr  error
		wantStatus int
		wantFields []string
	}{
		{
			name:       "invalid values",
			body:       `{"message_archive_retention": "PT1H", "minimum_tls_version": "2.0"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"message_archive_retention", "minimum_tls_version"},
		},
		{
			name:       "unknown field",
			body:       `{"mfa": true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"domain":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unencodable",
			body:       `{}`,
			engineErr:  &dialect.UnencodableError{Key: "name", Reason: "control character in string"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "engine stopped",
			body:       `{}`,
			engineErr:  engine.ErrNotRunning,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "apply failure",
			body:       `{}`,
			engineErr:  errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.eng.err = tc.engineErr

			rec := s.do(http.MethodPut, "/v1/settings", tc.body)

			s.Equal(tc.wantStatus, rec.Code)
			var resp ErrorResponse
			s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
			s.NotEmpty(resp.Error)
			var fields []string
			for _, f := range resp.Fields {
				fields = append(fields, f.Field)
			}
			s.Equal(tc.wantFields, fields)
			s.Equal("r1", s.eng.state.Revision)
		})
	}
}

func (s *APITestSuite) TestReset() {
	rec := s.do(http.MethodPost, "/v1/settings/reset", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(1, s.eng.resets)

	var resp SettingsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("r3", resp.Revision)
	s.Equal("localhost", resp.Settings.Domain.String())
}

func (s *APITestSuite) TestStatus() {
	rec := s.do(http.MethodGet, "/v1/status", "")
	s.Equal(http.StatusOK, rec.Code)

	var resp StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("r1", resp.Revision)
	s.EqualValues(3, resp.Applies)
	s.Equal("boom", resp.LastError)
	s.NotEmpty(resp.Version)
}

func (s *APITestSuite) TestMethodNotAllowed() {
	testCases := []struct {
		method, path, allow string
	}{
		{http.MethodPost, "/v1/settings", "GET"},
		{http.MethodGet, "/v1/settings/reset", "POST"},
		{http.MethodDelete, "/v1/status", "GET"},
	}
	for _, tc := range testCases {
		s.Run(tc.method+" "+tc.path, func() {
			rec := s.do(tc.method, tc.path, "")
			s.Equal(http.StatusMethodNotAllowed, rec.Code)
			s.Contains(rec.Header().Values("Allow"), tc.allow)
		})
	}
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
