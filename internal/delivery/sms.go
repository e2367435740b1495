package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/brokerjohn/internal/observability/logger"
)

// SMSConfig apunta al gateway HTTP del vendor de SMS.
type SMSConfig struct {
	VendorURL string `yaml:"vendor_url"`
	APIKey    string `yaml:"api_key"`
	From      string `yaml:"from"`
}

// SMSSender entrega códigos via el gateway HTTP del vendor.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
}

func NewSMSSender(cfg SMSConfig) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendCode postea el mensaje al vendor. Cualquier respuesta no-2xx es un
// fallo de entrega.
func (s *SMSSender) SendCode(ctx context.Context, destination, code string) error {
	payload, _ := json.Marshal(map[string]string{
		"to":   destination,
		"from": s.cfg.From,
		"body": "Tu código de acceso es: " + code,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.VendorURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.L().Error("sms send failed",
			logger.Component("SMSSender"),
			logger.String("to", destination),
			logger.Err(err),
		)
		return fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms vendor devolvió %d", resp.StatusCode)
	}

	logger.L().Info("code sms sent",
		logger.Component("SMSSender"),
		logger.String("to", destination),
	)
	return nil
}
