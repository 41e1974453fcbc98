package notify

import (
	"encoding/json"
	"errors"
	"strings"
)

var errUndecodableSubscription = errors.New("undecodable subscription data")

// RelaySubscription is the decoded form of a relay-platform subscription:
// the external user id the relay knows the user by.
type RelaySubscription struct {
	ExternalID string `json:"externalId"`
}

// NativeSubscription is the decoded form of a native-push subscription: the
// three fields the push gateway needs.
type NativeSubscription struct {
	Token      string `json:"token"`
	Endpoint   string `json:"endpoint,omitempty"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

func decodeRelay(data []byte) (RelaySubscription, error) {
	var sub RelaySubscription
	if err := json.Unmarshal(data, &sub); err == nil && sub.ExternalID != "" {
		return sub, nil
	}
	// Oldest clients stored the external id as a bare JSON string.
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil && raw != "" {
		return RelaySubscription{ExternalID: raw}, nil
	}
	return RelaySubscription{}, errUndecodableSubscription
}

// decodeNative understands the canonical shape plus two legacy shapes left
// behind by earlier clients: a bare token string, and the {fcmToken}
// wrapper. When a row matches more than one shape the canonical field wins.
func decodeNative(data []byte) (NativeSubscription, error) {
	var probe struct {
		Token      string `json:"token"`
		FCMToken   string `json:"fcmToken"`
		Endpoint   string `json:"endpoint"`
		DeviceInfo string `json:"deviceInfo"`
	}
	if err := json.Unmarshal(data, &probe); err == nil {
		token := probe.Token
		if token == "" {
			token = probe.FCMToken
		}
		if token != "" {
			return NativeSubscription{
				Token:      token,
				Endpoint:   probe.Endpoint,
				DeviceInfo: probe.DeviceInfo,
			}, nil
		}
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil && strings.TrimSpace(raw) != "" {
		return NativeSubscription{Token: raw}, nil
	}
	return NativeSubscription{}, errUndecodableSubscription
}
