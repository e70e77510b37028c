package betaudit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/betting-engine/pkg/contracts/events"
)

type flakyStore struct {
	failures int
	calls    int
	got      []Transition
}

func (s *flakyStore) Record(_ context.Context, t Transition) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("db down")
	}
	s.got = append(s.got, t)
	return nil
}

type memWriter struct{ msgs []kafka.Message }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func msg(t *testing.T, topic string, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Topic: topic, Key: []byte("k"), Value: b}
}

func TestHandle(t *testing.T) {
	placed := events.BetPlaced{SlipID: "s1", Stake: 1000, TotalOdds: "1.85", Memo: "크로스 1폴더 배팅"}
	cancelled := events.BetCancelled{SlipID: "s1", Refunded: 1000}

	tests := []struct {
		name     string
		decode   Decoder
		m        kafka.Message
		failures int
		want     string // novo status gravado; vazio = nada gravado
		dlq      int
	}{
		{"placed", DecodePlaced, msg(t, "bet_placed", placed), 0, "pending", 0},
		{"cancelled after retry", DecodeCancelled, msg(t, "bet_cancelled", cancelled), 2, "cancelled", 0},
		{"store keeps failing", DecodePlaced, msg(t, "bet_placed", placed), 10, "", 1},
		{"garbage", DecodePlaced, kafka.Message{Topic: "bet_placed", Value: []byte("{")}, 0, "", 1},
		{"missing id", DecodeCancelled, msg(t, "bet_cancelled", events.BetCancelled{}), 0, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &flakyStore{failures: tt.failures}
			dlq := &memWriter{}
			errs := map[string]int{}
			p := &Processor{
				Log:     zap.NewNop(),
				Decode:  tt.decode,
				Store:   st,
				DLQ:     dlq,
				Retries: 3,
				OnError: func(stage string) { errs[stage]++ },
			}
			p.Handle(context.Background(), tt.m)

			if tt.want == "" {
				if len(st.got) != 0 {
					t.Fatalf("recorded %+v", st.got)
				}
			} else if len(st.got) != 1 || st.got[0].NewStatus != tt.want || st.got[0].SlipID != "s1" {
				t.Fatalf("recorded %+v want status %s", st.got, tt.want)
			}
			if len(dlq.msgs) != tt.dlq {
				t.Fatalf("dlq=%d want %d (errors %v)", len(dlq.msgs), tt.dlq, errs)
			}
			if tt.dlq == 1 && string(dlq.msgs[0].Headers[0].Value) != tt.m.Topic {
				t.Fatalf("dlq source header=%q", dlq.msgs[0].Headers[0].Value)
			}
		})
	}
}
