package carddav

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davsync/go-webdav/carddav/carddavtest"
)

func TestDiscover(t *testing.T) {
	defer func(orig func(context.Context, string, string, string) (string, []*net.SRV, error)) {
		lookupSRV = orig
	}(lookupSRV)

	for _, tc := range []struct {
		name    string
		addrs   []*net.SRV
		err     error
		want    string
		wantErr bool
	}{
		{
			name:  "default port",
			addrs: []*net.SRV{{Target: "dav.example.com.", Port: 443}},
			want:  "https://dav.example.com",
		},
		{
			name:  "custom port",
			addrs: []*net.SRV{{Target: "dav.example.com.", Port: 8443}, {Target: "backup.example.com.", Port: 443}},
			want:  "https://dav.example.com:8443",
		},
		{
			name:    "no record",
			err:     &net.DNSError{Err: "no such host", Name: "example.com", IsNotFound: true},
			wantErr: true,
		},
		{
			name:    "service unavailable",
			addrs:   []*net.SRV{{Target: ".", Port: 0}},
			wantErr: true,
		},
		{
			name:    "temporary failure",
			err:     &net.DNSError{Err: "timeout", Name: "example.com", IsTemporary: true},
			wantErr: true,
		},
		{
			name:    "other failure",
			err:     errors.New("network unreachable"),
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			lookupSRV = func(ctx context.Context, service, proto, name string) (string, []*net.SRV, error) {
				assert.Equal(t, "carddavs", service)
				assert.Equal(t, "tcp", proto)
				assert.Equal(t, "example.com", name)
				return "", tc.addrs, tc.err
			}

			got, err := Discover(context.Background(), "example.com")
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, "/relative")
	assert.Error(t, err)

	_, err = NewClient(nil, "http://[::1")
	assert.Error(t, err)

	c, err := NewClient(nil, "https://dav.example.com")
	require.NoError(t, err)
	assert.Equal(t, "/", c.Endpoint().Path)
	assert.True(t, c.noneETagQuirk)

	c, err = NewClient(nil, "https://dav.example.com/ab/", WithNoneETagQuirk(false))
	require.NoError(t, err)
	assert.False(t, c.noneETagQuirk)
}

func TestNewOptions(t *testing.T) {
	opts := NewOptions()
	assert.True(t, opts.NoneETagQuirk)
	assert.Equal(t, zerolog.Disabled, opts.Logger.GetLevel())

	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	opts = NewOptions(WithLogger(logger), WithNoneETagQuirk(false), WithNoneETagQuirk(true))
	assert.True(t, opts.NoneETagQuirk)
	assert.Equal(t, zerolog.DebugLevel, opts.Logger.GetLevel())
}

func TestIsAddressBookAccessSupported(t *testing.T) {
	s := carddavtest.NewServer(carddavtest.Quirks{})
	defer s.Close()

	client := newTestClient(t, s.AddressBookURL())
	ok, err := client.IsAddressBookAccessSupported(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ts := newXMLServer(t, http.StatusOK, "")
	client = newTestClient(t, ts.URL)
	_, err = client.IsAddressBookAccessSupported(context.Background())
	assert.Error(t, err, "server without DAV header")
}

func TestIsResourceAddressBook(t *testing.T) {
	s := carddavtest.NewServer(carddavtest.Quirks{})
	defer s.Close()

	client := newTestClient(t, s.AddressBookURL())
	ok, err := client.IsResourceAddressBook(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	client = newTestClient(t, s.URL+carddavtest.HomeSetPath)
	ok, err = client.IsResourceAddressBook(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	client = newTestClient(t, s.URL+"/missing/")
	_, err = client.IsResourceAddressBook(context.Background())
	assert.Error(t, err)
}

func TestIsCollection(t *testing.T) {
	client := newTestClient(t, "https://dav.example.com/ab/")
	for _, tc := range []struct {
		href string
		want bool
	}{
		{"/ab/", true},
		{"/ab", true},
		{"/a%62/", true},
		{"/ab/a.vcf", false},
		{"/", false},
	} {
		id, err := NewResourceID(client.Endpoint(), tc.href)
		require.NoError(t, err)
		assert.Equal(t, tc.want, client.isCollection(id.URL()), tc.href)
	}
}
