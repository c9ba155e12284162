package poller

import (
	"fmt"
	"net/url"
)

// buildDSN maps a descriptor onto a driver name and DSN. SSL defaults to
// required without certificate verification for every driver.
func buildDSN(desc Descriptor) (driver string, dsn string, err error) {
	switch desc.Type {
	case "postgres", "postgresql":
		port := desc.Port
		if port == 0 {
			port = 5432
		}
		sslMode := "require"
		if desc.SSLDisabled {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			desc.Host, port, desc.User, desc.Password, desc.Database, sslMode)
		return "postgres", dsn, nil
	case "mysql":
		port := desc.Port
		if port == 0 {
			port = 3306
		}
		tls := "skip-verify"
		if desc.SSLDisabled {
			tls = "false"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=%s",
			desc.User, desc.Password, desc.Host, port, desc.Database, tls)
		return "mysql", dsn, nil
	case "mssql", "sqlserver":
		port := desc.Port
		if port == 0 {
			port = 1433
		}
		encrypt := "true&trustservercertificate=true"
		if desc.SSLDisabled {
			encrypt = "disable"
		}
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s&encrypt=%s",
			url.QueryEscape(desc.User), url.QueryEscape(desc.Password), desc.Host, port, desc.Database, encrypt)
		return "sqlserver", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database type %q", desc.Type)
	}
}
