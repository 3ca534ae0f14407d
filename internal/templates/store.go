// Package templates fetches per-solution email templates from S3-compatible
// object storage. Templates live at "<solutionID>/email-<action>.json".
package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	texttemplate "text/template"

	"accounts_backend/internal/accounts/domain"
	"accounts_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// EmailTemplate is the stored template document.
type EmailTemplate struct {
	Subject     string `json:"subject"`
	HTMLMessage string `json:"htmlMessage"`
	TextMessage string `json:"textMessage"`
	SenderName  string `json:"senderName,omitempty"`
	SenderEmail string `json:"senderEmail,omitempty"`
}

// templateData is the substitution context exposed to template authors.
type templateData struct {
	Name   string
	Email  string
	Mobile string
	Token  string
}

// Render substitutes account fields and the sealed token into the template.
func (t *EmailTemplate) Render(account *domain.Account, sealedToken string) (subject, htmlBody, textBody string, err error) {
	data := templateData{
		Name:   account.Name,
		Email:  account.Email,
		Mobile: account.Mobile,
		Token:  sealedToken,
	}

	if t.Subject != "" {
		tmpl, err := texttemplate.New("subject").Parse(t.Subject)
		if err != nil {
			return "", "", "", fmt.Errorf("parse subject template: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", "", "", fmt.Errorf("execute subject template: %w", err)
		}
		subject = buf.String()
	}

	if t.HTMLMessage != "" {
		tmpl, err := template.New("html").Parse(t.HTMLMessage)
		if err != nil {
			return "", "", "", fmt.Errorf("parse html template: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", "", "", fmt.Errorf("execute html template: %w", err)
		}
		htmlBody = buf.String()
	}

	if t.TextMessage != "" {
		tmpl, err := texttemplate.New("text").Parse(t.TextMessage)
		if err != nil {
			return "", "", "", fmt.Errorf("parse text template: %w", err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", "", "", fmt.Errorf("execute text template: %w", err)
		}
		textBody = buf.String()
	}

	return subject, htmlBody, textBody, nil
}

// Store fetches templates from a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore creates a template store from config.
func NewStore(cfg config.TemplateStoreConfig) (*Store, error) {
	if !cfg.IsTemplateStoreEnabled() {
		return nil, fmt.Errorf("template store is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create template store client: %w", err)
	}

	return &Store{client: client, bucket: cfg.GetTemplateBucket()}, nil
}

// Fetch loads and decodes the template for the given solution and action.
func (s *Store) Fetch(ctx context.Context, solutionID, action string) (*EmailTemplate, error) {
	key := fmt.Sprintf("%s/email-%s.json", solutionID, action)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch template %s: %w", key, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", key, err)
	}

	var tmpl EmailTemplate
	if err := json.Unmarshal(raw, &tmpl); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", key, err)
	}
	return &tmpl, nil
}
