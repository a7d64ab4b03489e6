package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		remote string
		header string
		want   string
	}{
		{name: "host port", remote: "10.0.0.7:5555", want: "ip:10.0.0.7"},
		{name: "bare remote", remote: "not-a-hostport", want: "ip:not-a-hostport"},
		{name: "empty remote", remote: "", want: "ip:unknown"},
		{name: "client id wins", remote: "10.0.0.7:5555", header: " dispatch-ui ", want: "id:dispatch-ui"},
		{name: "blank client id", remote: "10.0.0.7:5555", header: "  ", want: "ip:10.0.0.7"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "http://example/slots", nil)
			r.RemoteAddr = tc.remote
			if tc.header != "" {
				r.Header.Set(ClientIDHeader, tc.header)
			}
			require.Equal(t, tc.want, clientKey(r))
		})
	}
}
