package commands

import (
	"context"
	"testing"
	"time"

	"yamBot/internal/domain"
)

func newTestExecutor(t *testing.T, defs ...*domain.CommandDefinition) *Executor {
	t.Helper()
	reg, err := NewRegistry(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, def := range defs {
		if _, _, err := reg.Register(context.Background(), def); err != nil {
			t.Fatalf("Register %s: %v", def.Trigger, err)
		}
	}
	return NewExecutor(reg)
}

func viewerMessage() domain.Message {
	return domain.Message{Platform: domain.PlatformTwitch, Username: "viewer"}
}

func TestExecuteNotFound(t *testing.T) {
	disabled := testDefinition("apagado")
	disabled.Enabled = false
	exec := newTestExecutor(t, disabled)

	tests := []struct {
		name    string
		trigger string
	}{
		{"unknown trigger", "nada"},
		{"disabled command", "apagado"},
		{"blank trigger", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := exec.Execute(ExecutionContext{Trigger: tt.trigger, Sender: viewerMessage()})
			if res.Status != StatusNotFound {
				t.Errorf("status = %s, want %s", res.Status, StatusNotFound)
			}
		})
	}
}

func TestExecutePermissions(t *testing.T) {
	tests := []struct {
		name  string
		perms domain.RolePermissions
		msg   domain.Message
		want  ExecutionStatus
	}{
		{
			name:  "plain viewer denied on subs-only",
			perms: domain.RolePermissions{Subs: true},
			msg:   domain.Message{Username: "viewer"},
			want:  StatusPermissionDenied,
		},
		{
			name:  "subscriber allowed on subs-only",
			perms: domain.RolePermissions{Subs: true},
			msg:   domain.Message{Username: "sub", IsSubscriber: true},
			want:  StatusSuccess,
		},
		{
			name:  "subscriber denied when subs flag off",
			perms: domain.RolePermissions{VIPs: true, Mods: true},
			msg:   domain.Message{Username: "sub", IsSubscriber: true},
			want:  StatusPermissionDenied,
		},
		{
			name:  "vip allowed on vips-only",
			perms: domain.RolePermissions{VIPs: true},
			msg:   domain.Message{Username: "vip", IsVIP: true},
			want:  StatusSuccess,
		},
		{
			name:  "mod allowed on mods-only",
			perms: domain.RolePermissions{Mods: true},
			msg:   domain.Message{Username: "mod", IsModerator: true},
			want:  StatusSuccess,
		},
		{
			name:  "broadcaster always allowed",
			perms: domain.RolePermissions{},
			msg:   domain.Message{Username: "owner", IsBroadcaster: true},
			want:  StatusSuccess,
		},
		{
			name:  "everyone locked out except broadcaster",
			perms: domain.RolePermissions{},
			msg:   domain.Message{Username: "mod", IsModerator: true, IsSubscriber: true, IsVIP: true},
			want:  StatusPermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testDefinition("perm")
			def.Permissions = tt.perms
			def.Cooldown = 0
			exec := newTestExecutor(t, def)

			res := exec.Execute(ExecutionContext{Trigger: "perm", Sender: tt.msg})
			if res.Status != tt.want {
				t.Errorf("status = %s, want %s", res.Status, tt.want)
			}
		})
	}
}

func TestExecuteCooldown(t *testing.T) {
	def := testDefinition("cd")
	def.Cooldown = 5 * time.Second
	exec := newTestExecutor(t, def)

	base := time.Now()
	msg := domain.Message{Username: "owner", IsBroadcaster: true}

	res := exec.Execute(ExecutionContext{Trigger: "cd", Sender: msg, At: base})
	if res.Status != StatusSuccess {
		t.Fatalf("first trigger: status = %s, want %s", res.Status, StatusSuccess)
	}

	res = exec.Execute(ExecutionContext{Trigger: "cd", Sender: msg, At: base.Add(2 * time.Second)})
	if res.Status != StatusOnCooldown {
		t.Fatalf("t+2s: status = %s, want %s", res.Status, StatusOnCooldown)
	}
	if res.Remaining != 3*time.Second {
		t.Errorf("t+2s: remaining = %s, want 3s", res.Remaining)
	}

	res = exec.Execute(ExecutionContext{Trigger: "cd", Sender: msg, At: base.Add(6 * time.Second)})
	if res.Status != StatusSuccess {
		t.Errorf("t+6s: status = %s, want %s", res.Status, StatusSuccess)
	}
}

func TestExecuteCooldownSameInstant(t *testing.T) {
	def := testDefinition("doble")
	def.Cooldown = 5 * time.Second
	exec := newTestExecutor(t, def)

	at := time.Now()
	msg := domain.Message{Username: "owner", IsBroadcaster: true}

	first := exec.Execute(ExecutionContext{Trigger: "doble", Sender: msg, At: at})
	second := exec.Execute(ExecutionContext{Trigger: "doble", Sender: msg, At: at})

	if first.Status != StatusSuccess {
		t.Errorf("first: status = %s, want %s", first.Status, StatusSuccess)
	}
	if second.Status != StatusOnCooldown {
		t.Errorf("second: status = %s, want %s", second.Status, StatusOnCooldown)
	}
	if second.Remaining != 5*time.Second {
		t.Errorf("second: remaining = %s, want 5s", second.Remaining)
	}
}

func TestExecuteDeniedAttemptKeepsCooldownMark(t *testing.T) {
	def := testDefinition("marca")
	def.Cooldown = 5 * time.Second
	def.Permissions = domain.RolePermissions{Mods: true}
	exec := newTestExecutor(t, def)

	base := time.Now()
	mod := domain.Message{Username: "mod", IsModerator: true}
	viewer := domain.Message{Username: "viewer"}

	if res := exec.Execute(ExecutionContext{Trigger: "marca", Sender: mod, At: base}); res.Status != StatusSuccess {
		t.Fatalf("setup trigger: status = %s", res.Status)
	}

	// Un intento denegado no cuenta como disparo.
	if res := exec.Execute(ExecutionContext{Trigger: "marca", Sender: viewer, At: base.Add(6 * time.Second)}); res.Status != StatusPermissionDenied {
		t.Fatalf("denied attempt: status = %s", res.Status)
	}

	res := exec.Execute(ExecutionContext{Trigger: "marca", Sender: mod, At: base.Add(7 * time.Second)})
	if res.Status != StatusSuccess {
		t.Errorf("t+7s: status = %s, want %s (denied attempt must not restart cooldown)", res.Status, StatusSuccess)
	}
}

func TestExecuteZeroCooldown(t *testing.T) {
	def := testDefinition("libre")
	def.Cooldown = 0
	exec := newTestExecutor(t, def)

	at := time.Now()
	msg := domain.Message{Username: "owner", IsBroadcaster: true}
	for i := 0; i < 3; i++ {
		res := exec.Execute(ExecutionContext{Trigger: "libre", Sender: msg, At: at})
		if res.Status != StatusSuccess {
			t.Fatalf("trigger %d: status = %s, want %s", i, res.Status, StatusSuccess)
		}
	}
}

func TestExecuteActionPassthrough(t *testing.T) {
	send := testDefinition("saluda")
	send.Action = domain.CommandAction{Kind: domain.ActionSend, Text: "hola chat"}
	send.Cooldown = 0

	reply := testDefinition("contesta")
	reply.Action = domain.CommandAction{Kind: domain.ActionReply, Text: "para ti"}
	reply.Cooldown = 0

	exec := newTestExecutor(t, send, reply)
	msg := domain.Message{Username: "owner", IsBroadcaster: true}

	res := exec.Execute(ExecutionContext{Trigger: "saluda", Sender: msg})
	if res.Action.Kind != domain.ActionSend || res.Action.Text != "hola chat" {
		t.Errorf("send action = %+v", res.Action)
	}

	res = exec.Execute(ExecutionContext{Trigger: "CONTESTA", Sender: msg})
	if res.Action.Kind != domain.ActionReply || res.Action.Text != "para ti" {
		t.Errorf("reply action = %+v", res.Action)
	}
}

func TestExecuteNilExecutor(t *testing.T) {
	var exec *Executor
	res := exec.Execute(ExecutionContext{Trigger: "x", Sender: viewerMessage()})
	if res.Status != StatusNotFound {
		t.Errorf("nil executor: status = %s, want %s", res.Status, StatusNotFound)
	}
}
