package scheduler

import "testing"

func TestVerificationEmailTaskPayload(t *testing.T) {
	task, err := NewVerificationEmailTask(VerificationEmailPayload{
		To:       "ada@example.com",
		Subject:  "Welcome",
		HTMLBody: "<p>hello</p>",
		TextBody: "hello",
	})
	if err != nil {
		t.Fatalf("NewVerificationEmailTask: %v", err)
	}
	if task.Type() != TaskVerificationEmail {
		t.Fatalf("task type = %q, want %q", task.Type(), TaskVerificationEmail)
	}

	payload, err := ParseVerificationEmailPayload(task.Payload())
	if err != nil {
		t.Fatalf("ParseVerificationEmailPayload: %v", err)
	}
	if payload.To != "ada@example.com" {
		t.Errorf("To = %q, want %q", payload.To, "ada@example.com")
	}
	if payload.Subject != "Welcome" {
		t.Errorf("Subject = %q, want %q", payload.Subject, "Welcome")
	}
	if payload.HTMLBody != "<p>hello</p>" || payload.TextBody != "hello" {
		t.Errorf("bodies = %q / %q", payload.HTMLBody, payload.TextBody)
	}
}

func TestParseVerificationEmailPayloadRejectsGarbage(t *testing.T) {
	if _, err := ParseVerificationEmailPayload([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
