package event

import (
	"errors"
	"testing"

	"sicbo_go/internal/domain"
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

func TestDecode_TableJoined(t *testing.T) {
	raw := []byte(`{"event":"table_joined","data":{
		"game_number":"T88-1042","status":"betting","countdown":25,
		"balance":"10500.50","min_bet":10,"max_bet":5000}}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	joined, ok := ev.(TableJoined)
	if !ok {
		t.Fatalf("got %T, want TableJoined", ev)
	}
	if joined.GameNumber != "T88-1042" || joined.Phase != "betting" || joined.Countdown != 25 {
		t.Errorf("unexpected fields: %+v", joined)
	}
	if !joined.Balance.Equal(decimal.RequireFromString("10500.50")) {
		t.Errorf("balance = %s, want 10500.50", joined.Balance)
	}
	if !joined.MinBet.Equal(decimal.NewFromInt(10)) || !joined.MaxBet.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("limits = %s/%s", joined.MinBet, joined.MaxBet)
	}
}

func TestDecode_GameResult(t *testing.T) {
	raw := []byte(`{"event":"game_result","data":{"game_number":"g-7","dice":[2,2,5],"seq":1}}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	res := ev.(GameResult)
	if !res.HasDice || res.Dice != (dice.Roll{2, 2, 5}) || res.Seq != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestDecode_GameResultWithoutDice(t *testing.T) {
	raw := []byte(`{"event":"game_result","data":{"game_number":"g-7","seq":2}}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	res := ev.(GameResult)
	if res.HasDice {
		t.Error("HasDice should be false when dice are absent")
	}
}

func TestDecode_WinData(t *testing.T) {
	raw := []byte(`{"event":"win_data","data":{"game_number":"g-7","win_amount":"1100","seq":2}}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	win := ev.(WinData)
	if !win.WinAmount.Equal(decimal.NewFromInt(1100)) || win.Seq != 2 {
		t.Errorf("unexpected win data: %+v", win)
	}
}

func TestDecode_MalformedFrames(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing event", `{"data":{}}`},
		{"unknown event", `{"event":"mystery","data":{}}`},
		{"missing data", `{"event":"win_data"}`},
		{"bad dice face", `{"event":"game_result","data":{"game_number":"g","dice":[0,2,9],"seq":1}}`},
		{"bad dice count", `{"event":"game_result","data":{"game_number":"g","dice":[1,2],"seq":1}}`},
		{"bad amount", `{"event":"balance_update","data":{"game_number":"g","balance":"abc"}}`},
		{"new game without number", `{"event":"new_game_started","data":{"countdown":20}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			if !errors.Is(err, domain.ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		})
	}
}

func TestDecode_HeartbeatAndError(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"heartbeat_response","data":{"client_ts":1712345678}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if hb := ev.(HeartbeatResponse); hb.ClientTs != 1712345678 {
		t.Errorf("client_ts = %d", hb.ClientTs)
	}

	ev, err = Decode([]byte(`{"event":"error","data":{"code":"TABLE_CLOSED","message":"table closed"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if se := ev.(ServerError); se.Code != "TABLE_CLOSED" {
		t.Errorf("code = %s", se.Code)
	}
}
