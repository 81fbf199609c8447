package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

const msgCols = `id, patient_id, sender, text, created_at`

func (r *messageRepoPG) Append(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO chat_message (id, patient_id, sender, text)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		m.ID, m.PatientID, m.Sender, m.Text).Scan(&m.Timestamp)
}

func (r *messageRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+msgCols+` FROM chat_message
		WHERE patient_id = $1
		ORDER BY created_at ASC, id ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.PatientID, &m.Sender, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (r *messageRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_message WHERE patient_id = $1`, patientID)
	return err
}
