package codec

import "testing"

func TestCommand_Marshal(t *testing.T) {
	cmd := NewCommand("PING").With("nat", "1")
	if got, want := string(cmd.Marshal()), "PING nat=1"; got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestCommand_Marshal_NoParams(t *testing.T) {
	cmd := NewCommand("PING")
	if got, want := string(cmd.Marshal()), "PING"; got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestCommand_EscapesAmpersand(t *testing.T) {
	cmd := NewCommand("MYLISTADD").With("state", "A&B")
	if got, want := string(cmd.Marshal()), "MYLISTADD state=A&amp;B"; got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestNewAuthCommand_FixedParamOrder(t *testing.T) {
	cmd := NewAuthCommand(map[string]string{
		"pass":      "secret",
		"user":      "alice",
		"clientver": "1",
		"protover":  "3",
		"client":    "anidbclient",
		"mtu":       "1400",
	})
	got := string(cmd.Marshal())
	want := "AUTH user=alice&pass=secret&protover=3&client=anidbclient&clientver=1&mtu=1400"
	if got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestNewAuthCommand_OmitsAbsentOptionalParams(t *testing.T) {
	cmd := NewAuthCommand(map[string]string{
		"user": "alice", "pass": "secret", "protover": "3", "client": "anidbclient", "clientver": "1",
	})
	got := string(cmd.Marshal())
	want := "AUTH user=alice&pass=secret&protover=3&client=anidbclient&clientver=1"
	if got != want {
		t.Errorf("Marshal() = %q, want %q", got, want)
	}
}

func TestParseResponse_CodeMessageAndFields(t *testing.T) {
	body := []byte("220 FILE\r\n123|456|7|Episode Title\n")
	resp, err := ParseResponse(body)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Code != 220 {
		t.Errorf("Code = %d, want 220", resp.Code)
	}
	if resp.Message != "FILE" {
		t.Errorf("Message = %q, want %q", resp.Message, "FILE")
	}
	if len(resp.Lines) != 1 || len(resp.Lines[0]) != 4 {
		t.Fatalf("Lines = %v, want one 4-field row", resp.Lines)
	}
	if resp.Lines[0][3] != "Episode Title" {
		t.Errorf("field = %q, want %q", resp.Lines[0][3], "Episode Title")
	}
}

func TestParseResponse_MalformedCode(t *testing.T) {
	if _, err := ParseResponse([]byte("abc bad code")); err == nil {
		t.Fatal("want error for non-numeric code")
	}
	if _, err := ParseResponse([]byte("")); err == nil {
		t.Fatal("want error for empty body")
	}
}

func TestParseResponse_NoTrailingMessage(t *testing.T) {
	resp, err := ParseResponse([]byte("300"))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Code != 300 || resp.Message != "" {
		t.Errorf("got Code=%d Message=%q", resp.Code, resp.Message)
	}
}
