package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRelay(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"canonical", `{"externalId":"ext-7"}`, "ext-7", false},
		{"legacy bare string", `"ext-7"`, "ext-7", false},
		{"empty object", `{}`, "", true},
		{"empty string", `""`, "", true},
		{"garbage", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeRelay([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, errUndecodableSubscription)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ExternalID)
		})
	}
}

func TestDecodeNative(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantToken string
		wantErr   bool
	}{
		{"canonical", `{"token":"tok-1","endpoint":"https://e","deviceInfo":"pixel"}`, "tok-1", false},
		{"legacy fcmToken wrapper", `{"fcmToken":"tok-2"}`, "tok-2", false},
		{"legacy bare string", `"tok-3"`, "tok-3", false},
		{"canonical wins over legacy", `{"token":"tok-a","fcmToken":"tok-b"}`, "tok-a", false},
		{"blank bare string", `"  "`, "", true},
		{"empty object", `{}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeNative([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, errUndecodableSubscription)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, got.Token)
		})
	}
}

func TestDecodeNativeKeepsEndpointAndDevice(t *testing.T) {
	got, err := decodeNative([]byte(`{"token":"tok-1","endpoint":"https://fcm.example/ep","deviceInfo":"pixel-8"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://fcm.example/ep", got.Endpoint)
	assert.Equal(t, "pixel-8", got.DeviceInfo)
}
