package schema

import (
	"fmt"
	"sort"
)

// EntityKind is the closed set of table keys accepted from clients.
type EntityKind string

// Airline catalog.
const (
	KindRole        EntityKind = "Role"
	KindAccount     EntityKind = "Account"
	KindUser        EntityKind = "User"
	KindAirport     EntityKind = "Airport"
	KindAirplane    EntityKind = "Airplane"
	KindFlight      EntityKind = "Flight"
	KindPassenger   EntityKind = "Passenger"
	KindClass       EntityKind = "Class"
	KindPayment     EntityKind = "Payment"
	KindTicket      EntityKind = "Ticket"
	KindBaggageType EntityKind = "BaggageType"
	KindBaggage     EntityKind = "Baggage"
	KindAuditLog    EntityKind = "AuditLog"
)

// Coral-store catalog.
const (
	KindCountry           EntityKind = "Countries"
	KindSea               EntityKind = "Seas"
	KindReef              EntityKind = "Reefs"
	KindCategory          EntityKind = "Categories"
	KindCoral             EntityKind = "Corals"
	KindOrderStatus       EntityKind = "OrderStatuses"
	KindStoreAccount      EntityKind = "Accounts"
	KindStoreRole         EntityKind = "Roles"
	KindStoreUser         EntityKind = "Users"
	KindOrder             EntityKind = "Orders"
	KindOrderItem         EntityKind = "OrderItems"
	KindCertificateStatus EntityKind = "CertificateStatuses"
	KindCertificateType   EntityKind = "CertificateTypes"
	KindCertificate       EntityKind = "Certificates"
	KindReview            EntityKind = "Reviews"
)

// AirlineKinds lists the airline catalog in dependency order.
var AirlineKinds = []EntityKind{
	KindRole, KindAccount, KindUser, KindAirport, KindAirplane, KindFlight,
	KindPassenger, KindClass, KindPayment, KindTicket, KindBaggageType,
	KindBaggage, KindAuditLog,
}

// CoralKinds lists the coral-store catalog in dependency order.
var CoralKinds = []EntityKind{
	KindCountry, KindSea, KindReef, KindCategory, KindCoral, KindOrderStatus,
	KindStoreAccount, KindStoreRole, KindStoreUser, KindOrder, KindOrderItem,
	KindCertificateStatus, KindCertificateType, KindCertificate, KindReview,
}

// Registry maps entity kinds to their descriptors. It is built once and never
// mutated, so it is safe for concurrent readers.
type Registry struct {
	order  []EntityKind
	byKind map[EntityKind]*EntitySchema
}

// NewRegistry panics on a duplicate kind or a reference to an unregistered kind;
// both are programming errors in the static catalogs.
func NewRegistry(schemas ...*EntitySchema) *Registry {
	r := &Registry{byKind: make(map[EntityKind]*EntitySchema, len(schemas))}
	for _, s := range schemas {
		if _, dup := r.byKind[s.Kind]; dup {
			panic(fmt.Sprintf("schema: duplicate entity kind %s", s.Kind))
		}
		if _, ok := s.Field(s.PrimaryKey); !ok {
			panic(fmt.Sprintf("schema: %s has no primary key field %s", s.Kind, s.PrimaryKey))
		}
		r.byKind[s.Kind] = s
		r.order = append(r.order, s.Kind)
	}
	for _, s := range schemas {
		for _, f := range s.Fields {
			if f.Ref == "" {
				continue
			}
			if _, ok := r.byKind[f.Ref]; !ok {
				panic(fmt.Sprintf("schema: %s.%s references unregistered kind %s", s.Kind, f.Name, f.Ref))
			}
		}
	}
	return r
}

// Lookup resolves a client-supplied table key. Anything outside the registry
// yields ok=false.
func (r *Registry) Lookup(name string) (*EntitySchema, bool) {
	s, ok := r.byKind[EntityKind(name)]
	return s, ok
}

func (r *Registry) MustLookup(kind EntityKind) *EntitySchema {
	s, ok := r.byKind[kind]
	if !ok {
		panic(fmt.Sprintf("schema: unknown entity kind %s", kind))
	}
	return s
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []EntityKind {
	return append([]EntityKind(nil), r.order...)
}

// Schemas returns the descriptors in registration order.
func (r *Registry) Schemas() []*EntitySchema {
	out := make([]*EntitySchema, len(r.order))
	for i, k := range r.order {
		out[i] = r.byKind[k]
	}
	return out
}

// ByTable finds a descriptor by its physical table name.
func (r *Registry) ByTable(table string) (*EntitySchema, bool) {
	for _, k := range r.order {
		if s := r.byKind[k]; s.Table == table {
			return s, true
		}
	}
	return nil, false
}

// SortedNames returns the kinds as strings, alphabetically.
func (r *Registry) SortedNames() []string {
	names := make([]string, len(r.order))
	for i, k := range r.order {
		names[i] = string(k)
	}
	sort.Strings(names)
	return names
}

var (
	airlineRegistry = NewRegistry(AirlineSchemas()...)
	coralRegistry   = NewRegistry(CoralSchemas()...)
)

// Airline returns the shared airline registry.
func Airline() *Registry { return airlineRegistry }

// Coral returns the shared coral-store registry.
func Coral() *Registry { return coralRegistry }
