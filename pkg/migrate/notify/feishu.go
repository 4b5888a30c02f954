// package notify
//
// fire and forget webhook cards for task lifecycle. Delivery failure is
// logged and swallowed, it must never fail the migration itself.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/baderkha/mysql2ch/pkg/conditional"
	"github.com/baderkha/mysql2ch/pkg/migrate/event"
	"github.com/rs/zerolog"
)

// Config : webhook settings, resolved from the job file
type Config struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	WebhookURL      string `json:"webhook_url" mapstructure:"webhook_url"`
	NotifyOnStart   bool   `json:"notify_on_start" mapstructure:"notify_on_start"`
	NotifyOnSuccess bool   `json:"notify_on_success" mapstructure:"notify_on_success"`
	NotifyOnFailure bool   `json:"notify_on_failure" mapstructure:"notify_on_failure"`
	EnvName         string `json:"env_name" mapstructure:"env_name"`
	ProjectName     string `json:"project_name" mapstructure:"project_name"`
}

type Feishu struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

func NewFeishu(cfg Config, log zerolog.Logger) *Feishu {
	if cfg.Enabled && cfg.WebhookURL == "" {
		log.Warn().Msg("feishu notification enabled but webhook_url not configured, disabling")
		cfg.Enabled = false
	}
	if cfg.ProjectName == "" {
		cfg.ProjectName = "Data Migration"
	}
	if cfg.EnvName == "" {
		cfg.EnvName = "Production"
	}
	return &Feishu{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

var _ event.Listener = (*Feishu)(nil)

func (f *Feishu) OnTaskStarted(ev event.TaskStarted) {
	if !f.cfg.Enabled || !f.cfg.NotifyOnStart {
		return
	}
	f.sendCard("🚀 Migration Started", "blue", []string{
		fmt.Sprintf("**Project:** %s (%s)", f.cfg.ProjectName, f.cfg.EnvName),
		fmt.Sprintf("**Run:** %s", ev.RunID),
		fmt.Sprintf("**Route:** %s → %s", ev.SourceDB, ev.TargetDB),
		fmt.Sprintf("**Tables (%d):** %s", len(ev.Tables), strings.Join(ev.Tables, ", ")),
	})
}

func (f *Feishu) OnTableStarted(event.TableStarted)     {}
func (f *Feishu) OnTableProgress(event.TableProgress)   {}
func (f *Feishu) OnTableCompleted(event.TableCompleted) {}

func (f *Feishu) OnTaskCompleted(ev event.TaskCompleted) {
	if !f.cfg.Enabled {
		return
	}
	failed := ev.FailedTables > 0
	if failed && !f.cfg.NotifyOnFailure {
		return
	}
	if !failed && !f.cfg.NotifyOnSuccess {
		return
	}

	lines := []string{
		fmt.Sprintf("**Project:** %s (%s)", f.cfg.ProjectName, f.cfg.EnvName),
		fmt.Sprintf("**Run:** %s", ev.RunID),
		fmt.Sprintf("**Tables:** %d ok / %d failed / %d skipped of %d", ev.SuccessTables, ev.FailedTables, ev.SkippedTables, ev.TotalTables),
		fmt.Sprintf("**Rows:** %d", ev.TotalRows),
		fmt.Sprintf("**Duration:** %s", ev.Duration.Round(time.Second)),
	}
	if ev.FirstError != "" {
		lines = append(lines, fmt.Sprintf("**First error:** %s", ev.FirstError))
	}

	f.sendCard(
		conditional.Ternary(failed, "❌ Migration Failed", "✅ Migration Succeeded"),
		conditional.Ternary(failed, "red", "green"),
		lines,
	)
}

type card struct {
	MsgType string      `json:"msg_type"`
	Card    cardContent `json:"card"`
}

type cardContent struct {
	Config   map[string]bool  `json:"config"`
	Header   cardHeader       `json:"header"`
	Elements []map[string]any `json:"elements"`
}

type cardHeader struct {
	Title    map[string]string `json:"title"`
	Template string            `json:"template"`
}

func (f *Feishu) sendCard(title string, color string, lines []string) {
	body, err := json.Marshal(card{
		MsgType: "interactive",
		Card: cardContent{
			Config: map[string]bool{"wide_screen_mode": true},
			Header: cardHeader{
				Title:    map[string]string{"tag": "plain_text", "content": title},
				Template: color,
			},
			Elements: []map[string]any{
				{
					"tag": "div",
					"text": map[string]string{
						"tag":     "lark_md",
						"content": strings.Join(lines, "\n"),
					},
				},
			},
		},
	})
	if err != nil {
		f.log.Error().Err(err).Msg("feishu card marshal failed")
		return
	}

	resp, err := f.client.Post(f.cfg.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		f.log.Error().Err(err).Msg("feishu webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		f.log.Error().Err(err).Msg("feishu webhook returned unreadable body")
		return
	}
	if result.Code != 0 {
		f.log.Error().Int("code", result.Code).Str("msg", result.Msg).Msg("feishu webhook rejected card")
		return
	}
	f.log.Info().Str("title", title).Msg("feishu notification sent")
}
