package postgres

import (
	"net"
	"net/url"

	"currency-sync-service/pkg/config"
)

// BuildDSN renders the connection URL, escaping credentials.
func BuildDSN(cfg config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Postgres.User, cfg.Postgres.Password),
		Host:     net.JoinHostPort(cfg.Postgres.Host, cfg.Postgres.Port),
		Path:     "/" + cfg.Postgres.DBName,
		RawQuery: url.Values{"sslmode": {cfg.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}
