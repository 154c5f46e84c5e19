package model

import "time"

// Event represents a published event as stored in the `events`
// table. Events are created by organizers and carry the venue
// coordinates used by the map-based browse endpoints. Deleting an
// event cascades to its ticket types.
//
// Fields:
//  ID          – UUID primary key.
//  OrganizerID – user who created and owns the event.
//  Title       – display title.
//  Description – optional long description.
//  StartsAt    – when the event begins.
//  Address     – street address of the venue.
//  City        – venue city.
//  Country     – venue country.
//  Latitude    – venue latitude for map display.
//  Longitude   – venue longitude for map display.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          string    // events.id
	OrganizerID uint64    // events.organizer_id
	Title       string    // events.title
	Description *string   // events.description (nullable)
	StartsAt    time.Time // events.starts_at
	Address     string    // events.address
	City        string    // events.city
	Country     string    // events.country
	Latitude    float64   // events.latitude
	Longitude   float64   // events.longitude
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}
