package zap

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/theory-cloud/apigwmock/pkg/observability"
)

type fakeSNSClient struct {
	last *sns.PublishInput
	err  error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSNotifier_ValidatesInputsAndSanitizesSubject(t *testing.T) {
	var n *snsNotifier
	if err := n.Notify(context.Background(), observability.LogEntry{}); err == nil {
		t.Fatal("expected error for nil notifier")
	}

	client := &fakeSNSClient{}
	notifier := NewSNSNotifier(client, "  arn:aws:sns:us-east-1:000000000000:topic  ", SNSNotifierOptions{
		Subject: "line1\r\n" + strings.Repeat("s", 200),
	})

	entry := observability.LogEntry{
		Level:   "error",
		Message: "smoke failed",
		Stack:   "SampleMockApiStack",
		Fields: map[string]any{
			"payload": strings.Repeat("x", 300*1024),
		},
	}

	if err := notifier.Notify(context.Background(), entry); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if client.last == nil || *client.last.TopicArn != "arn:aws:sns:us-east-1:000000000000:topic" {
		t.Fatalf("expected trimmed topic arn, got %#v", client.last)
	}
	subject := *client.last.Subject
	if strings.ContainsAny(subject, "\r\n") || len(subject) > maxSubjectLen {
		t.Fatalf("expected sanitized subject, got %q", subject)
	}
	if len(*client.last.Message) > maxMessageLen {
		t.Fatalf("expected message to be truncated; len=%d", len(*client.last.Message))
	}
}

func TestSNSNotifier_DefaultSubjectAndPayload(t *testing.T) {
	t.Setenv("CDK_DEFAULT_REGION", "us-west-2")

	client := &fakeSNSClient{}
	notifier := NewSNSNotifier(client, "arn:aws:sns:us-east-1:000000000000:topic", SNSNotifierOptions{})
	if err := notifier.Notify(context.Background(), observability.LogEntry{Message: "boom", Command: "synth"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if *client.last.Subject != defaultSubject {
		t.Fatalf("expected default subject, got %q", *client.last.Subject)
	}

	var payload struct {
		Entry observability.LogEntry `json:"entry"`
		Env   map[string]string      `json:"env"`
	}
	if err := json.Unmarshal([]byte(*client.last.Message), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Entry.Message != "boom" || payload.Entry.Command != "synth" {
		t.Fatalf("unexpected entry: %#v", payload.Entry)
	}
	if payload.Env["cdk_default_region"] != "us-west-2" {
		t.Fatalf("unexpected env: %#v", payload.Env)
	}
}

func TestSNSNotifier_TopicARNRequired(t *testing.T) {
	notifier := NewSNSNotifier(&fakeSNSClient{}, "", SNSNotifierOptions{})
	if err := notifier.Notify(context.Background(), observability.LogEntry{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSNSNotifier_PropagatesPublishError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("publish failed")}
	notifier := NewSNSNotifier(client, "arn:aws:sns:us-east-1:000000000000:topic", SNSNotifierOptions{})
	if err := notifier.Notify(context.Background(), observability.LogEntry{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnvironmentErrorNotifications_ConfiguresNotifier(t *testing.T) {
	t.Setenv("APIGWMOCK_ERROR_TOPIC_ARN", "")
	t.Setenv("SNS_ERROR_TOPIC_ARN", "")

	opts := &loggerOptions{}
	WithEnvironmentErrorNotifications(context.Background(), DefaultEnvironmentErrorNotifications())(opts)
	if opts.notifier != nil || opts.initErr != nil {
		t.Fatalf("expected no notifier when env vars unset")
	}

	t.Setenv("APIGWMOCK_ERROR_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:topic")
	t.Setenv("APIGWMOCK_ERROR_SUBJECT", "  deploy alarm ")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "dummy")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "dummy")

	opts = &loggerOptions{}
	WithEnvironmentErrorNotifications(context.Background(), DefaultEnvironmentErrorNotifications())(opts)
	if opts.notifier == nil || opts.initErr != nil {
		t.Fatalf("expected notifier to be set, got notifier=%v err=%v", opts.notifier, opts.initErr)
	}
	n, ok := opts.notifier.(*snsNotifier)
	if !ok {
		t.Fatalf("expected sns notifier, got %#v", opts.notifier)
	}
	if n.subject != "deploy alarm" {
		t.Fatalf("expected subject from env, got %q", n.subject)
	}
}

func TestEnvironmentErrorNotifications_FallsBackToGenericVar(t *testing.T) {
	t.Setenv("APIGWMOCK_ERROR_TOPIC_ARN", "")
	t.Setenv("SNS_ERROR_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:topic")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "dummy")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "dummy")

	opts := &loggerOptions{}
	WithEnvironmentErrorNotifications(context.Background(), DefaultEnvironmentErrorNotifications())(opts)
	if opts.notifier == nil || opts.initErr != nil {
		t.Fatalf("expected notifier to be set, got notifier=%v err=%v", opts.notifier, opts.initErr)
	}
}
