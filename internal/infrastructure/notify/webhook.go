package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/infrastructure/report"
)

const (
	DefaultTopN    = 5
	defaultTimeout = 10 * time.Second
)

type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// Webhook 企业微信风格的文本机器人
type Webhook struct {
	url    string
	topN   int
	client *resty.Client
}

// NewWebhook url 为空时 Notify 直接返回
func NewWebhook(url string, topN int) *Webhook {
	if topN <= 0 {
		topN = DefaultTopN
	}
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	return &Webhook{url: strings.TrimSpace(url), topN: topN, client: client}
}

func (w *Webhook) Enabled() bool { return w.url != "" }

func (w *Webhook) Notify(ctx context.Context, opps []model.EnrichedOpportunity) error {
	if !w.Enabled() || len(opps) == 0 {
		return nil
	}

	msg := textMessage{MsgType: "text"}
	msg.Text.Content = Summary(opps, w.topN)

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d", resp.StatusCode())
	}
	log.Info().Int("opportunities", len(opps)).Msg("webhook notified")
	return nil
}

// Summary 取前 topN 条拼成文本，输入已按价差降序
func Summary(opps []model.EnrichedOpportunity, topN int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "资金费率套利机会 %d 个\n", len(opps))
	for i, o := range opps {
		if i == topN {
			fmt.Fprintf(&sb, "... 其余 %d 个见 CSV\n", len(opps)-topN)
			break
		}
		fmt.Fprintf(&sb, "\n%d. %s @ %02d:00 价差 %s\n", i+1, report.ShortPair(o.Symbol), o.TargetHour, report.FormatPct(o.Spread))
		fmt.Fprintf(&sb, "多: %s %s (%s)\n", o.LongExchange, report.FormatPct(o.LongRate), report.FormatVolume(o.LongVolume1m))
		fmt.Fprintf(&sb, "空: %s %s (%s)\n", o.ShortExchange, report.FormatPct(o.ShortRate), report.FormatVolume(o.ShortVolume1m))
	}
	return sb.String()
}

var _ port.Notifier = (*Webhook)(nil)
