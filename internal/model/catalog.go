package model

import "time"

// Pass describes a purchasable ticket product (e.g. a single pony ride or
// an all-day luge bracelet).
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name of the pass.
//  PriceCents – price in euro cents.
//  IsActive   – whether the pass is currently on sale.
type Pass struct {
    ID         uint64 // passes.id
    Name       string // passes.name
    PriceCents uint32 // passes.price_cents
    IsActive   bool   // passes.is_active
}

// TimeSlot is a scheduled occurrence of an activity with a bounded
// capacity.  Slot-bound reservations reference one of these rows.
//
// Fields:
//  ID       – primary key identifier.
//  Activity – activity taking place during the slot.
//  StartsAt – start time of the slot (UTC).
//  Capacity – maximum number of admissions for the slot.
type TimeSlot struct {
    ID       uint64    // time_slots.id
    Activity string    // time_slots.activity
    StartsAt time.Time // time_slots.starts_at
    Capacity uint32    // time_slots.capacity
}
