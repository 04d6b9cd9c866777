// Package vpn provides the server catalog and connection orchestration.
// This file contains the ServerProfile type and its derivation helpers.
package vpn

import (
	"fmt"
	"strings"
	"time"

	"vpndial/common"
)

// ServerProfile represents a VPN endpoint the user can dial.
// Profiles are immutable once added to the Registry; the only update
// path is Remove followed by a fresh Add.
type ServerProfile struct {
	// ID is a unique, time-derived identifier assigned at creation.
	ID int64 `json:"id" yaml:"id"`
	// DisplayName is a human-readable label for the server.
	DisplayName string `json:"display_name" yaml:"display_name"`
	// Address is the hostname or IP of the VPN endpoint.
	Address string `json:"address" yaml:"address"`
	// Username is the username for authentication.
	Username string `json:"username" yaml:"username"`
	// Secret is the password for authentication.
	Secret string `json:"secret" yaml:"secret"`
	// ConnectionName is the name under which the OS registers the
	// network profile. Derived from Address unless set explicitly.
	ConnectionName string `json:"connection_name" yaml:"connection_name"`
	// CountryCode is a short code used for display grouping only.
	CountryCode string `json:"country_code" yaml:"country_code"`
}

// NewServerProfile builds a profile for the given endpoint with a fresh
// time-derived ID. The connection name is derived from the address, and
// an empty country code falls back to the default.
func NewServerProfile(displayName, address, username, secret, countryCode string) *ServerProfile {
	if countryCode == "" {
		countryCode = common.DefaultCountryCode
	}
	return &ServerProfile{
		ID:             NewProfileID(),
		DisplayName:    displayName,
		Address:        address,
		Username:       username,
		Secret:         secret,
		ConnectionName: DeriveConnectionName(address),
		CountryCode:    countryCode,
	}
}

// NewProfileID returns a time-derived profile identifier. Collisions are
// not expected in practice; the Registry rejects an exact duplicate ID
// on Add rather than silently doubling an entry.
func NewProfileID() int64 {
	return time.Now().UnixNano()
}

// DeriveConnectionName maps a server address to the name the OS network
// profile is registered under. Every non-alphanumeric rune becomes an
// underscore, so repeated creation for the same address is idempotent:
//
//	"ca149.vpnbook.com" -> "VPN_ca149_vpnbook_com"
func DeriveConnectionName(address string) string {
	var b strings.Builder
	b.WriteString("VPN_")
	for _, r := range address {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Label returns the name to show for this profile, falling back to the
// address when no display name was given.
func (p *ServerProfile) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Address
}

// Validate checks if the profile has all required fields.
func (p *ServerProfile) Validate() error {
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("%w: address is required", common.ErrInvalidProfile)
	}
	if p.ConnectionName == "" {
		return fmt.Errorf("%w: connection name is required", common.ErrInvalidProfile)
	}
	return nil
}
