package booking

// Event names a lifecycle trigger.
type Event string

const (
	EventConfirm    Event = "confirm"
	EventCancel     Event = "cancel"
	EventComplete   Event = "complete"
	EventReschedule Event = "reschedule"
	EventExpire     Event = "expire"
	EventView       Event = "view"
)

// Actor is whoever asks for a transition. Role evaluation happens upstream;
// the engine only sees the resulting capabilities. Landlord marks an account
// that owns listings; it scopes list reads, never transitions.
type Actor struct {
	ID       string
	Admin    bool
	Landlord bool
	System   bool
}

// SystemActor drives scheduled sweeps.
var SystemActor = Actor{ID: "system", System: true}

// Relation is a set of relationships between an actor and a booking.
type Relation uint8

const (
	RelTenant Relation = 1 << iota
	RelLandlord
	RelAdmin
	RelSystem
)

func (r Relation) Has(other Relation) bool { return r&other != 0 }

// RelationOf derives the actor's relationship to a booking of a listing owned
// by landlordID.
func RelationOf(actor Actor, b *Booking, landlordID string) Relation {
	var rel Relation
	if actor.System {
		rel |= RelSystem
	}
	if actor.Admin {
		rel |= RelAdmin
	}
	if actor.ID == "" {
		return rel
	}
	if b != nil && b.TenantID == actor.ID {
		rel |= RelTenant
	}
	if landlordID != "" && landlordID == actor.ID {
		rel |= RelLandlord
	}
	return rel
}

// Authorizer is the capability predicate consulted before every transition.
type Authorizer interface {
	Allows(event Event, rel Relation) bool
}

// AuthorizerFunc adapts a plain function.
type AuthorizerFunc func(event Event, rel Relation) bool

func (f AuthorizerFunc) Allows(event Event, rel Relation) bool { return f(event, rel) }

// RelationshipPolicy maps each event to the relations allowed to trigger it.
type RelationshipPolicy map[Event]Relation

func (p RelationshipPolicy) Allows(event Event, rel Relation) bool {
	allowed, ok := p[event]
	if !ok {
		return false
	}
	return rel.Has(allowed)
}

func DefaultPolicy() RelationshipPolicy {
	return RelationshipPolicy{
		EventConfirm:    RelLandlord | RelAdmin,
		EventCancel:     RelTenant | RelLandlord | RelAdmin,
		EventReschedule: RelTenant | RelLandlord | RelAdmin,
		EventView:       RelTenant | RelLandlord | RelAdmin,
		EventComplete:   RelSystem,
		EventExpire:     RelSystem,
	}
}
