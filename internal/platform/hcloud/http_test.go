package hcloud

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer mocks the Hetzner Cloud API.
type testServer struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu    sync.Mutex
	calls []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{mux: http.NewServeMux()}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.calls = append(ts.calls, r.Method+" "+r.URL.Path)
		ts.mu.Unlock()
		ts.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *Client {
	return NewClient("test-token",
		WithHCloudClient(hcloud.NewClient(
			hcloud.WithToken("test-token"),
			hcloud.WithEndpoint(ts.server.URL),
		)),
		WithTimeout(5*time.Second),
	)
}

func (ts *testServer) handleFunc(pattern string, handler http.HandlerFunc) {
	ts.mux.HandleFunc(pattern, handler)
}

func (ts *testServer) called(call string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, c := range ts.calls {
		if c == call {
			return true
		}
	}
	return false
}

// jsonResponse writes a JSON response with the given status code and body.
func jsonResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func testRules() []hcloud.FirewallRule {
	_, any4, _ := net.ParseCIDR("0.0.0.0/0")
	return []hcloud.FirewallRule{{
		Direction: hcloud.FirewallRuleDirectionIn,
		Protocol:  hcloud.FirewallRuleProtocolTCP,
		Port:      hcloud.Ptr("443"),
		SourceIPs: []net.IPNet{*any4},
	}}
}

func serverList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("name") != "gw" {
		jsonResponse(w, http.StatusOK, schema.ServerListResponse{Servers: []schema.Server{}})
		return
	}
	jsonResponse(w, http.StatusOK, schema.ServerListResponse{
		Servers: []schema.Server{{ID: 42, Name: "gw"}},
	})
}

func TestSyncFirewall_CreatesAndApplies(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.handleFunc("/firewalls", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jsonResponse(w, http.StatusOK, schema.FirewallListResponse{Firewalls: []schema.Firewall{}})
		case http.MethodPost:
			var req schema.FirewallCreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "vpsgate", req.Name)
			require.Len(t, req.Rules, 1)
			jsonResponse(w, http.StatusCreated, schema.FirewallCreateResponse{
				Firewall: schema.Firewall{ID: 7, Name: req.Name},
				Actions:  []schema.Action{},
			})
		}
	})
	ts.handleFunc("/servers", serverList)
	ts.handleFunc("/firewalls/7/actions/apply_to_resources", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusCreated, schema.FirewallActionApplyToResourcesResponse{Actions: []schema.Action{}})
	})

	sync, err := ts.client().SyncFirewall(t.Context(), "vpsgate", testRules(), map[string]string{"managed-by": "vpsgate"}, "gw")
	require.NoError(t, err)
	assert.True(t, sync.Created)
	assert.Equal(t, "gw", sync.AppliedTo)
	assert.Equal(t, int64(7), sync.Firewall.ID)
}

func TestSyncFirewall_UpdatesExisting(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.handleFunc("/firewalls", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, schema.FirewallListResponse{Firewalls: []schema.Firewall{{
			ID:   7,
			Name: "vpsgate",
			AppliedTo: []schema.FirewallResource{{
				Type:   "server",
				Server: &schema.FirewallResourceServer{ID: 42},
			}},
		}}})
	})
	ts.handleFunc("/firewalls/7/actions/set_rules", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusCreated, schema.FirewallActionSetRulesResponse{Actions: []schema.Action{}})
	})
	ts.handleFunc("/servers", serverList)

	sync, err := ts.client().SyncFirewall(t.Context(), "vpsgate", testRules(), nil, "gw")
	require.NoError(t, err)
	assert.False(t, sync.Created)
	assert.Empty(t, sync.AppliedTo, "already applied")
	assert.True(t, ts.called("POST /firewalls/7/actions/set_rules"))
	assert.False(t, ts.called("POST /firewalls/7/actions/apply_to_resources"))
}

func TestSyncFirewall_UnknownServer(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.handleFunc("/firewalls", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.FirewallListResponse{Firewalls: []schema.Firewall{{ID: 7, Name: "vpsgate"}}})
	})
	ts.handleFunc("/firewalls/7/actions/set_rules", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusCreated, schema.FirewallActionSetRulesResponse{Actions: []schema.Action{}})
	})
	ts.handleFunc("/servers", serverList)

	_, err := ts.client().SyncFirewall(t.Context(), "vpsgate", testRules(), nil, "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server other not found")
}

func TestSyncFirewall_ServerGoneBeforeApply(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.handleFunc("/firewalls", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.FirewallListResponse{Firewalls: []schema.Firewall{{ID: 7, Name: "vpsgate"}}})
	})
	ts.handleFunc("/firewalls/7/actions/set_rules", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusCreated, schema.FirewallActionSetRulesResponse{Actions: []schema.Action{}})
	})
	ts.handleFunc("/servers", serverList)
	ts.handleFunc("/firewalls/7/actions/apply_to_resources", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusNotFound, schema.ErrorResponse{Error: schema.Error{
			Code:    string(hcloud.ErrorCodeNotFound),
			Message: "server with ID 42 not found",
		}})
	})

	_, err := ts.client().SyncFirewall(t.Context(), "vpsgate", testRules(), nil, "gw")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "server gw not found")
}

func TestSyncFirewall_Unauthorized(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	ts.handleFunc("/firewalls", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusUnauthorized, schema.ErrorResponse{Error: schema.Error{
			Code:    string(hcloud.ErrorCodeUnauthorized),
			Message: "unable to authenticate",
		}})
	})

	_, err := ts.client().SyncFirewall(t.Context(), "vpsgate", testRules(), nil, "")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
}
