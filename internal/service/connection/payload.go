package connection

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"graphable/internal/domain"
	"graphable/internal/validation"
)

const defaultPort = 5432

// rawPayload accepts the JSON connection object. Port may be a number or a
// numeric string; ssl may be a boolean or {"rejectUnauthorized": bool}.
type rawPayload struct {
	Host     string          `json:"host"`
	Port     json.RawMessage `json:"port"`
	Database string          `json:"database"`
	User     string          `json:"user"`
	Password string          `json:"password"`
	SSL      json.RawMessage `json:"ssl"`
}

// ParsePayload decodes a secret payload into a ConnectionConfig. The payload
// is either a JSON object or a postgres:// / postgresql:// URI.
func ParsePayload(payload string) (*domain.ConnectionConfig, error) {
	s := strings.TrimSpace(payload)
	var (
		cfg *domain.ConnectionConfig
		err error
	)
	switch {
	case strings.HasPrefix(s, "{"):
		cfg, err = parseJSON(s)
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"):
		cfg, err = parseURI(s)
	default:
		return nil, domain.ErrValidation("secret payload must be a JSON object or a postgres URI")
	}
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseJSON(s string) (*domain.ConnectionConfig, error) {
	var raw rawPayload
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, domain.ErrValidation("invalid secret payload JSON: %v", err)
	}

	port, err := parsePort(raw.Port)
	if err != nil {
		return nil, err
	}
	ssl, err := parseSSL(raw.SSL)
	if err != nil {
		return nil, err
	}
	return &domain.ConnectionConfig{
		Host:     raw.Host,
		Port:     port,
		Database: raw.Database,
		User:     raw.User,
		Password: raw.Password,
		SSL:      ssl,
	}, nil
}

func parsePort(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return defaultPort, nil
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return defaultPort, nil
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.ErrValidation("port must be an integer, got %s", raw)
	}
	return port, nil
}

func parseSSL(raw json.RawMessage) (*domain.SSLConfig, error) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false":
		return nil, nil
	case "true":
		return &domain.SSLConfig{RejectUnauthorized: true}, nil
	}
	obj := struct {
		RejectUnauthorized *bool `json:"rejectUnauthorized"`
	}{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, domain.ErrValidation("ssl must be a boolean or an object")
	}
	ssl := &domain.SSLConfig{RejectUnauthorized: true}
	if obj.RejectUnauthorized != nil {
		ssl.RejectUnauthorized = *obj.RejectUnauthorized
	}
	return ssl, nil
}

func parseURI(s string) (*domain.ConnectionConfig, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, domain.ErrValidation("invalid connection URI")
	}

	cfg := &domain.ConnectionConfig{
		Host:     u.Hostname(),
		Port:     defaultPort,
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, domain.ErrValidation("port must be an integer, got %q", p)
		}
		cfg.Port = port
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	ssl, err := sslFromMode(u.Query().Get("sslmode"))
	if err != nil {
		return nil, err
	}
	cfg.SSL = ssl
	return cfg, nil
}

// sslFromMode maps libpq sslmode values onto the TLS setting. "prefer" and
// "allow" connect without TLS since the executor does not retry.
func sslFromMode(mode string) (*domain.SSLConfig, error) {
	switch mode {
	case "", "disable", "allow", "prefer":
		return nil, nil
	case "require":
		return &domain.SSLConfig{RejectUnauthorized: false}, nil
	case "verify-ca", "verify-full":
		return &domain.SSLConfig{RejectUnauthorized: true}, nil
	default:
		return nil, domain.ErrValidation("unsupported sslmode %q", mode)
	}
}
