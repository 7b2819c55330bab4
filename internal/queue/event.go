// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketValidatedEvent is published when an agent successfully validates
// a reservation for an activity. It carries enough information for
// downstream consumers to log, notify, or feed analytics without
// querying the primary database. Duplicate scans and rejections are not
// published; only committed ledger rows produce an event.
type TicketValidatedEvent struct {
    ValidationID      uint64 `json:"validation_id"`
    ReservationID     uint64 `json:"reservation_id"`
    ReservationNumber string `json:"reservation_number"`
    ClientEmail       string `json:"client_email"`
    PassName          string `json:"pass_name"`
    Activity          string `json:"activity"`
    AgentID           uint64 `json:"agent_id"`
    AgentEmail        string `json:"agent_email"`
    ValidatedAt       string `json:"validated_at"`
}
