package config

import "fmt"

// TerminalConfig configures the classroom terminal client.
type TerminalConfig struct {
	ServerURL   string
	TerminalID  string
	Token       string // activation token, used when TerminalID is empty
	StudentName string // prompted for when empty
	APIKey      string // student's own provider key, optional
	LogFile     string // the TUI owns stdout, so logs go here
}

// LoadTerminal reads the terminal client's LEARN_TERMINAL_ variables.
func LoadTerminal() (*TerminalConfig, error) {
	if err := loadEnvFile(envStr("LEARN_ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	return &TerminalConfig{
		ServerURL:   envStr("LEARN_TERMINAL_SERVER_URL", "http://localhost:8080"),
		TerminalID:  envStr("LEARN_TERMINAL_ID", ""),
		Token:       envStr("LEARN_TERMINAL_TOKEN", ""),
		StudentName: envStr("LEARN_TERMINAL_STUDENT", ""),
		APIKey:      envStr("LEARN_TERMINAL_API_KEY", ""),
		LogFile:     envStr("LEARN_TERMINAL_LOG_FILE", "codebuddy-terminal.log"),
	}, nil
}

// Validate checks that the terminal can identify itself.
func (c *TerminalConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("LEARN_TERMINAL_SERVER_URL is required")
	}
	if c.TerminalID == "" && c.Token == "" {
		return fmt.Errorf("set LEARN_TERMINAL_ID or LEARN_TERMINAL_TOKEN")
	}
	return nil
}
