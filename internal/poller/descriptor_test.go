package poller

import "testing"

func TestParseConnectionDefaults(t *testing.T) {
	desc, err := ParseConnection([]byte(`{"host":"db.example.com","database":"metrics","user":"poll","password":"secret","port":5432}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Type != "postgres" {
		t.Fatalf("expected postgres default type, got %q", desc.Type)
	}
	if desc.Port != 5432 || desc.User != "poll" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.SSLDisabled {
		t.Fatalf("ssl must stay on unless the blob disables it")
	}
}

func TestParseConnectionUsernameAlias(t *testing.T) {
	desc, err := ParseConnection([]byte(`{"host":"h","username":"alice","user":"ignored"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.User != "alice" {
		t.Fatalf("username must win over user, got %q", desc.User)
	}
}

func TestParseConnectionStringPort(t *testing.T) {
	desc, err := ParseConnection([]byte(`{"host":"h","port":"3306","type":"mysql"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Port != 3306 || desc.Type != "mysql" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
}

func TestParseConnectionInvalidPort(t *testing.T) {
	if _, err := ParseConnection([]byte(`{"host":"h","port":"eighty"}`)); err == nil {
		t.Fatalf("expected error for unparseable port")
	}
}

func TestParseConnectionSSLDisabled(t *testing.T) {
	desc, err := ParseConnection([]byte(`{"host":"h","ssl":false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !desc.SSLDisabled {
		t.Fatalf("expected ssl disabled")
	}
}

func TestParseConnectionMissingHost(t *testing.T) {
	if _, err := ParseConnection([]byte(`{"database":"d"}`)); err == nil {
		t.Fatalf("expected error for missing host")
	}
}

func TestParseConnectionMalformedBlob(t *testing.T) {
	if _, err := ParseConnection([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed blob")
	}
}
