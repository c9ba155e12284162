// Package poller executes a rule's SQL against the user's own database and
// extracts a single numeric scalar. Connections are opened and fully closed
// within the scope of one evaluation.
package poller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Descriptor is parsed fresh from the stored connection blob for every
// evaluation and never persisted back.
type Descriptor struct {
	Type        string
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	SSLDisabled bool
}

type rawConnection struct {
	Type     string          `json:"type"`
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	Database string          `json:"database"`
	User     string          `json:"user"`
	Username string          `json:"username"`
	Password string          `json:"password"`
	SSL      *bool           `json:"ssl"`
}

// ParseConnection decodes a stored connection blob. The blob may carry the
// user under "username" or "user" and the port as a number or a string. SSL
// stays on (without certificate verification) unless the blob disables it.
func ParseConnection(raw []byte) (Descriptor, error) {
	var conn rawConnection
	if err := json.Unmarshal(raw, &conn); err != nil {
		return Descriptor{}, fmt.Errorf("parse connection blob: %w", err)
	}
	if conn.Host == "" {
		return Descriptor{}, errors.New("connection blob has no host")
	}
	user := conn.Username
	if user == "" {
		user = conn.User
	}
	port, err := parsePort(conn.Port)
	if err != nil {
		return Descriptor{}, err
	}
	dbType := strings.ToLower(strings.TrimSpace(conn.Type))
	if dbType == "" {
		dbType = "postgres"
	}
	return Descriptor{
		Type:        dbType,
		Host:        conn.Host,
		Port:        port,
		Database:    conn.Database,
		User:        user,
		Password:    conn.Password,
		SSLDisabled: conn.SSL != nil && !*conn.SSL,
	}, nil
}

func parsePort(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	text := strings.Trim(string(raw), `"`)
	if text == "" || text == "null" {
		return 0, nil
	}
	port, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q in connection blob", text)
	}
	return port, nil
}
