package event

import (
	"encoding/json"
	"fmt"

	"sicbo_go/internal/domain"
	"sicbo_go/pkg/dice"

	"github.com/shopspring/decimal"
)

// frame is the wire envelope for every server message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Amounts arrive as json.Number to avoid float64 precision loss.
type tableJoinedData struct {
	GameNumber string      `json:"game_number"`
	Status     string      `json:"status"`
	Countdown  int         `json:"countdown"`
	Balance    json.Number `json:"balance"`
	MinBet     json.Number `json:"min_bet"`
	MaxBet     json.Number `json:"max_bet"`
}

type newGameData struct {
	GameNumber string `json:"game_number"`
	Countdown  int    `json:"countdown"`
}

type statusData struct {
	GameNumber string `json:"game_number"`
	Status     string `json:"status"`
	Countdown  int    `json:"countdown"`
}

type resultData struct {
	GameNumber string `json:"game_number"`
	Dice       []int  `json:"dice"`
	Seq        int64  `json:"seq"`
}

type winData struct {
	GameNumber string      `json:"game_number"`
	WinAmount  json.Number `json:"win_amount"`
	Seq        int64       `json:"seq"`
}

type balanceData struct {
	GameNumber string      `json:"game_number"`
	Balance    json.Number `json:"balance"`
}

type heartbeatData struct {
	ClientTs int64 `json:"client_ts"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decode parses one raw websocket frame into a typed event.
// Malformed frames return a wrapped domain.ErrProtocol; the caller logs
// and drops them without crashing the dispatcher.
func Decode(raw []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: bad envelope: %v", domain.ErrProtocol, err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("%w: frame without event name", domain.ErrProtocol)
	}

	switch Type(f.Event) {
	case TypeTableJoined:
		var d tableJoinedData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		balance, err := toAmount(d.Balance)
		if err != nil {
			return nil, err
		}
		minBet, err := toAmount(d.MinBet)
		if err != nil {
			return nil, err
		}
		maxBet, err := toAmount(d.MaxBet)
		if err != nil {
			return nil, err
		}
		return TableJoined{
			GameNumber: d.GameNumber,
			Phase:      d.Status,
			Countdown:  d.Countdown,
			Balance:    balance,
			MinBet:     minBet,
			MaxBet:     maxBet,
		}, nil

	case TypeNewGameStarted:
		var d newGameData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		if d.GameNumber == "" {
			return nil, fmt.Errorf("%w: new_game_started without game number", domain.ErrProtocol)
		}
		return NewGameStarted{GameNumber: d.GameNumber, Countdown: d.Countdown}, nil

	case TypeGameStatusChange:
		var d statusData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		return GameStatusChange{GameNumber: d.GameNumber, Status: d.Status, Countdown: d.Countdown}, nil

	case TypeCountdownTick:
		var d statusData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		return CountdownTick{GameNumber: d.GameNumber, Status: d.Status, Countdown: d.Countdown}, nil

	case TypeGameResult:
		var d resultData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		ev := GameResult{GameNumber: d.GameNumber, Seq: d.Seq}
		if len(d.Dice) > 0 {
			roll, err := dice.FromSlice(d.Dice)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
			}
			ev.Dice = roll
			ev.HasDice = true
		}
		return ev, nil

	case TypeWinData:
		var d winData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		amount, err := toAmount(d.WinAmount)
		if err != nil {
			return nil, err
		}
		return WinData{GameNumber: d.GameNumber, WinAmount: amount, Seq: d.Seq}, nil

	case TypeBalanceUpdate:
		var d balanceData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		balance, err := toAmount(d.Balance)
		if err != nil {
			return nil, err
		}
		return BalanceUpdate{GameNumber: d.GameNumber, Balance: balance}, nil

	case TypeHeartbeatResponse:
		var d heartbeatData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		return HeartbeatResponse{ClientTs: d.ClientTs}, nil

	case TypeServerError:
		var d errorData
		if err := unmarshalData(f.Data, &d); err != nil {
			return nil, err
		}
		return ServerError{Code: d.Code, Message: d.Message}, nil
	}

	return nil, fmt.Errorf("%w: unknown event %q", domain.ErrProtocol, f.Event)
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: frame without data", domain.ErrProtocol)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: bad data: %v", domain.ErrProtocol, err)
	}
	return nil
}

func toAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad amount %q: %v", domain.ErrProtocol, n, err)
	}
	return d, nil
}
