package translator

import (
	"context"
	"fmt"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleClient uses Cloud Translation in HTML mode so markup survives. The
// system prompt is ignored; the request model selects the Cloud Translation
// model ("nmt" or "base"), any other value uses the service default.
type GoogleClient struct {
	target language.Tag
	client *translate.Client
}

// NewGoogleClient creates a client translating into targetLang. When
// credentialsFile is empty Application Default Credentials are used.
func NewGoogleClient(ctx context.Context, targetLang, credentialsFile string, extra ...option.ClientOption) (*GoogleClient, error) {
	tag, err := language.Parse(targetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", targetLang, err)
	}

	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &GoogleClient{target: tag, client: client}, nil
}

func (c *GoogleClient) Name() string {
	return "google"
}

func (c *GoogleClient) Complete(ctx context.Context, req Request) (string, error) {
	opts := &translate.Options{Format: translate.HTML}
	if req.Model == "nmt" || req.Model == "base" {
		opts.Model = req.Model
	}

	translations, err := c.client.Translate(ctx, []string{req.Text}, c.target, opts)
	if err != nil {
		return "", transportError("translation failed", err)
	}
	if len(translations) == 0 {
		return "", malformedError("no translation returned", nil)
	}
	return translations[0].Text, nil
}

func (c *GoogleClient) Close() error {
	return c.client.Close()
}
