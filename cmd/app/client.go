package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v3"
)

const (
	defaultServer = "http://127.0.0.1:8080"
	defaultSocket = "./wanwu.sock"
)

type cliConfig struct {
	Transport string `json:"transport"`
	Server    string `json:"server"`
	Socket    string `json:"socket"`
}

type apiClient struct {
	client *resty.Client
}

func newAPIClient(server string) *apiClient {
	return &apiClient{client: resty.New().
		SetBaseURL(strings.TrimRight(server, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)}
}

func (c *apiClient) request(ctx context.Context, method, path string, in any, out any) error {
	req := c.client.R().SetContext(ctx)
	if in != nil {
		req.SetBody(in)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp.Body(), &payload) == nil && payload.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode(), payload.Error)
		}
		return fmt.Errorf("api error (%d): %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wanwu", "config.json"), nil
}

func loadConfig() (cliConfig, error) {
	cfg := cliConfig{Transport: "uds", Server: defaultServer, Socket: defaultSocket}
	path, err := configPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	var saved cliConfig
	if err := json.Unmarshal(data, &saved); err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if saved.Transport != "" {
		cfg.Transport = saved.Transport
	}
	if saved.Server != "" {
		cfg.Server = saved.Server
	}
	if saved.Socket != "" {
		cfg.Socket = saved.Socket
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// clientConfig layers the global flags over the saved config file.
func clientConfig(c *cli.Command) (cliConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("socket") {
		cfg.Socket = c.String("socket")
	}
	if cfg.Transport != "uds" && cfg.Transport != "http" {
		return cfg, fmt.Errorf("unknown transport %q (use uds or http)", cfg.Transport)
	}
	return cfg, nil
}
