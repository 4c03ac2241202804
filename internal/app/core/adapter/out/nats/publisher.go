package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-stake-ledger/internal/app/core/usecase"
)

// Config NATS 事件發布設定
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	Stream         string        `yaml:"stream"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	MaxAge         time.Duration `yaml:"max_age"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Validate 只在啟用時檢查
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errors.New("nats: url is required")
	}
	if c.Stream == "" || c.SubjectPrefix == "" {
		return errors.New("nats: stream and subject_prefix are required")
	}
	return nil
}

// Connect 建立 NATS 連線，斷線與重連都會記錄
func Connect(cfg Config, log zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

// EnsureStream 建立或更新存放帳本事件的 stream
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    cfg.MaxAge,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}
	return nil
}

// streamPublisher jetstream.JetStream 中發布事件用到的部分
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher 將 LedgerEvent 以 JSON 發布到 <prefix>.<operation>
type Publisher struct {
	js      streamPublisher
	prefix  string
	timeout time.Duration
}

var _ usecase.EventPublisher = (*Publisher)(nil)

func NewPublisher(js streamPublisher, cfg Config) *Publisher {
	return &Publisher{
		js:      js,
		prefix:  cfg.SubjectPrefix,
		timeout: cfg.PublishTimeout,
	}
}

// Subject 事件的主題
func (p *Publisher) Subject(evt domain.LedgerEvent) string {
	return p.prefix + "." + evt.Operation
}

// Publish 發布一筆事件
// 同一操作的同一狀態使用相同 MsgID，JetStream 會去重
func (p *Publisher) Publish(ctx context.Context, evt domain.LedgerEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msgID := evt.OperationID.String() + "." + string(evt.Status)
	if _, err := p.js.Publish(ctx, p.Subject(evt), data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(evt), err)
	}
	return nil
}
