package main

import (
	"fmt"
	"io"

	"chatyni/internal/configs"
	"chatyni/internal/pkg/logx"
	"chatyni/internal/pkg/randx"
)

// bootstrapPassword returns the configured administrator password. When none is set it
// generates one and prints it once to out; the structured log only records that a
// password was generated.
func bootstrapPassword(cfg *configs.AppConfig, out io.Writer) (string, error) {
	if cfg.AdminPassword != "" {
		return cfg.AdminPassword, nil
	}

	password, err := randx.Password()
	if err != nil {
		return "", fmt.Errorf("generate bootstrap password: %w", err)
	}

	fmt.Fprintf(out, "\nBootstrap administrator %q <%s> one-time password: %s\nSet ADMIN_PASSWORD to choose your own.\n\n",
		cfg.AdminUsername, cfg.AdminEmail, password)

	logx.Warn("ADMIN_PASSWORD is not set; generated a one-time administrator password and printed it to stderr.",
		"username", cfg.AdminUsername, "email", cfg.AdminEmail)

	return password, nil
}
