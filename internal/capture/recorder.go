package capture

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder writes datagrams under one session id.
type Recorder struct {
	db      *gorm.DB
	clock   clock.Clock
	session string
}

func NewRecorder(db *gorm.DB, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.New()
	}
	return &Recorder{db: db, clock: clk, session: uuid.NewString()}
}

func (r *Recorder) Session() string {
	return r.session
}

// Record stores a copy of payload.
func (r *Recorder) Record(ctx context.Context, dir Direction, peer string, payload []byte) error {
	d := Datagram{
		SessionID:  r.session,
		Direction:  dir,
		Peer:       peer,
		Size:       len(payload),
		Payload:    append([]byte(nil), payload...),
		CapturedAt: r.clock.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return fmt.Errorf("recording datagram: %w", err)
	}
	return nil
}

// List returns what this recorder has captured so far.
func (r *Recorder) List(ctx context.Context) ([]Datagram, error) {
	return List(ctx, r.db, r.session)
}

// List returns a session's datagrams in capture order.
func List(ctx context.Context, db *gorm.DB, session string) ([]Datagram, error) {
	var out []Datagram
	err := db.WithContext(ctx).
		Where("session_id = ?", session).
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing session %s: %w", session, err)
	}
	return out, nil
}

func Sessions(ctx context.Context, db *gorm.DB) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&Datagram{}).
		Distinct("session_id").
		Order("session_id").
		Pluck("session_id", &out).Error
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return out, nil
}
