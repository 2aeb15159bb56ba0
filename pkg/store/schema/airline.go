package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

var (
	FlightStatuses  = []string{"SCHEDULED", "DELAYED", "CANCELLED", "COMPLETED"}
	ClassNames      = []string{"ECONOMY", "BUSINESS", "FIRST"}
	PaymentMethods  = []string{"CARD", "CASH", "ONLINE"}
	PaymentStatuses = []string{"PENDING", "COMPLETED", "FAILED"}
	TicketStatuses  = []string{"AVAILABLE", "BOOKED", "PAID", "CHECKED_IN", "CANCELLED"}
	BaggageTypes    = []string{"HAND", "STANDARD", "EXTRA", "SPORT", "OVERSIZE"}
	BaggageStatuses = []string{"REGISTERED", "LOADED", "DELIVERED", "LOST"}
	AuditOperations = []string{"INSERT", "UPDATE", "DELETE"}
)

func autoKey(name string) FieldDef {
	return FieldDef{Name: name, Type: FieldTypeInteger, PrimaryKey: true, AutoIncrement: true}
}

func labelColumn(col string) func(map[string]interface{}) string {
	return func(row map[string]interface{}) string {
		return cast.ToString(row[col])
	}
}

func labelFullName(first, last string) func(map[string]interface{}) string {
	return func(row map[string]interface{}) string {
		return strings.TrimSpace(cast.ToString(row[first]) + " " + cast.ToString(row[last]))
	}
}

// FlightCode renders the public flight number for a flight id.
func FlightCode(id interface{}) string {
	return fmt.Sprintf("GQ%03d", cast.ToInt64(id))
}

// AirlineSchemas returns fresh descriptors for the airline panel tables.
func AirlineSchemas() []*EntitySchema {
	return []*EntitySchema{
		{
			Kind:        KindRole,
			Table:       "roles",
			Description: "Panel roles",
			PrimaryKey:  "id_role",
			Fields: []FieldDef{
				autoKey("id_role"),
				{Name: "role_name", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 50},
			},
			DisplayFields: []string{"id_role", "role_name"},
			OptionLabel:   labelColumn("role_name"),
		},
		{
			Kind:        KindAccount,
			Table:       "accounts",
			Description: "Sign-in accounts",
			PrimaryKey:  "id_account",
			Fields: []FieldDef{
				autoKey("id_account"),
				{Name: "email", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 255},
				{Name: "password", Type: FieldTypeString, Required: true, MaxLength: 255, Secret: true},
				{Name: "role_id", Type: FieldTypeInteger, Required: true, Ref: KindRole, OnDelete: OnDeleteCascade},
				{Name: "created_at", Type: FieldTypeTimestamp, AutoNow: true},
			},
			DisplayFields: []string{"id_account", "email", "role_id", "created_at"},
			OptionLabel:   labelColumn("email"),
		},
		{
			Kind:        KindUser,
			Table:       "users",
			Description: "Customer profiles",
			PrimaryKey:  "id_user",
			Fields: []FieldDef{
				autoKey("id_user"),
				{Name: "account_id", Type: FieldTypeInteger, Required: true, Unique: true, Ref: KindAccount, OnDelete: OnDeleteCascade},
				{Name: "first_name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "patronymic", Type: FieldTypeString, Nullable: true, MaxLength: 50},
				{Name: "last_name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "phone", Type: FieldTypeString, Nullable: true, MaxLength: 20, Pattern: PatternPhone},
				{Name: "passport_number", Type: FieldTypeString, Nullable: true, Unique: true, MaxLength: 20, Pattern: PatternPassport},
				{Name: "birthday", Type: FieldTypeDate, Nullable: true},
			},
			DisplayFields: []string{"id_user", "account_id", "first_name", "last_name", "patronymic", "phone", "passport_number", "birthday"},
			OptionLabel:   labelFullName("first_name", "last_name"),
		},
		{
			Kind:        KindAirport,
			Table:       "airports",
			Description: "Airports keyed by IATA code",
			PrimaryKey:  "id_airport",
			Fields: []FieldDef{
				{Name: "id_airport", Type: FieldTypeString, PrimaryKey: true, MaxLength: 3},
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 255},
				{Name: "city", Type: FieldTypeString, Required: true, MaxLength: 100},
				{Name: "country", Type: FieldTypeString, Required: true, MaxLength: 50},
			},
			DisplayFields: []string{"id_airport", "name", "city", "country"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:        KindAirplane,
			Table:       "airplanes",
			Description: "Fleet",
			PrimaryKey:  "id_airplane",
			Fields: []FieldDef{
				autoKey("id_airplane"),
				{Name: "model", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "registration_number", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 20},
				{Name: "capacity", Type: FieldTypeInteger, Required: true, NonNegative: true},
				{Name: "economy_capacity", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
				{Name: "business_capacity", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
				{Name: "first_capacity", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
				{Name: "rows", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
				{Name: "seats_row", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
			},
			DisplayFields: []string{"id_airplane", "model", "registration_number", "capacity", "economy_capacity", "business_capacity", "first_capacity", "rows", "seats_row"},
			OptionLabel:   labelColumn("model"),
		},
		{
			Kind:        KindFlight,
			Table:       "flights",
			Description: "Scheduled flights",
			PrimaryKey:  "id_flight",
			Fields: []FieldDef{
				autoKey("id_flight"),
				{Name: "airplane_id", Type: FieldTypeInteger, Required: true, Ref: KindAirplane, OnDelete: OnDeleteCascade},
				{Name: "status", Type: FieldTypeString, Required: true, MaxLength: 30, Choices: FlightStatuses, DefaultValue: "SCHEDULED"},
				{Name: "departure_airport_id", Type: FieldTypeString, Required: true, MaxLength: 3, Ref: KindAirport, OnDelete: OnDeleteCascade},
				{Name: "arrival_airport_id", Type: FieldTypeString, Required: true, MaxLength: 3, Ref: KindAirport, OnDelete: OnDeleteCascade},
				{Name: "departure_time", Type: FieldTypeTimestamp, Required: true},
				{Name: "arrival_time", Type: FieldTypeTimestamp, Required: true},
				{Name: "actual_departure_time", Type: FieldTypeTimestamp, Nullable: true},
				{Name: "actual_arrival_time", Type: FieldTypeTimestamp, Nullable: true},
			},
			Checks: []CheckDef{
				{Name: "check_departure_before_arrival", Expr: "departure_time < arrival_time"},
			},
			DisplayFields: []string{"id_flight", "airplane_id", "departure_airport_id", "arrival_airport_id", "departure_time", "arrival_time", "status"},
			OptionLabel: func(row map[string]interface{}) string {
				return FlightCode(row["id_flight"])
			},
		},
		{
			Kind:        KindPassenger,
			Table:       "passengers",
			Description: "Travelling passengers",
			PrimaryKey:  "id_passenger",
			Fields: []FieldDef{
				autoKey("id_passenger"),
				{Name: "first_name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "patronymic", Type: FieldTypeString, Nullable: true, MaxLength: 50},
				{Name: "last_name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "passport_number", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 20, Pattern: PatternPassport},
				{Name: "birthday", Type: FieldTypeDate, Required: true},
			},
			DisplayFields: []string{"id_passenger", "first_name", "last_name", "patronymic", "passport_number", "birthday"},
			OptionLabel:   labelFullName("first_name", "last_name"),
		},
		{
			Kind:        KindClass,
			Table:       "class",
			Description: "Cabin classes",
			PrimaryKey:  "id_class",
			Fields: []FieldDef{
				autoKey("id_class"),
				{Name: "class_name", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 50, Choices: ClassNames},
			},
			DisplayFields: []string{"id_class", "class_name"},
			OptionLabel:   labelColumn("class_name"),
		},
		{
			Kind:        KindPayment,
			Table:       "payments",
			Description: "Customer payments",
			PrimaryKey:  "id_payment",
			Fields: []FieldDef{
				autoKey("id_payment"),
				{Name: "payment_date", Type: FieldTypeTimestamp, AutoNow: true},
				{Name: "total_cost", Type: FieldTypeDecimal, Required: true, Precision: 9, Scale: 2, NonNegative: true},
				{Name: "user_id", Type: FieldTypeInteger, Required: true, Ref: KindUser, OnDelete: OnDeleteCascade},
				{Name: "payment_method", Type: FieldTypeString, Required: true, MaxLength: 30, Choices: PaymentMethods},
				{Name: "status", Type: FieldTypeString, Required: true, MaxLength: 20, Choices: PaymentStatuses, DefaultValue: "PENDING"},
			},
			DisplayFields: []string{"id_payment", "user_id", "payment_date", "total_cost", "payment_method", "status"},
			OptionLabel:   labelColumn("id_payment"),
		},
		{
			Kind:        KindTicket,
			Table:       "tickets",
			Description: "Seats sold on flights",
			PrimaryKey:  "id_ticket",
			Fields: []FieldDef{
				autoKey("id_ticket"),
				{Name: "flight_id", Type: FieldTypeInteger, Required: true, Ref: KindFlight, OnDelete: OnDeleteCascade},
				{Name: "class_id", Type: FieldTypeInteger, Required: true, Ref: KindClass, OnDelete: OnDeleteCascade},
				{Name: "seat_number", Type: FieldTypeString, Required: true, MaxLength: 5},
				{Name: "price", Type: FieldTypeDecimal, Required: true, Precision: 8, Scale: 2, NonNegative: true, DefaultValue: 0},
				{Name: "status", Type: FieldTypeString, Required: true, MaxLength: 20, Choices: TicketStatuses, DefaultValue: "AVAILABLE"},
				{Name: "passenger_id", Type: FieldTypeInteger, Nullable: true, Ref: KindPassenger, OnDelete: OnDeleteCascade},
				{Name: "payment_id", Type: FieldTypeInteger, Nullable: true, Ref: KindPayment, OnDelete: OnDeleteSetNull},
			},
			Indexes: []IndexDef{
				{Name: "unique_flight_seat", Columns: []string{"flight_id", "seat_number"}, Unique: true},
			},
			DisplayFields: []string{"id_ticket", "flight_id", "class_id", "seat_number", "price", "status", "passenger_id", "payment_id"},
			OptionLabel:   labelColumn("id_ticket"),
		},
		{
			Kind:        KindBaggageType,
			Table:       "baggage_types",
			Description: "Baggage allowances and pricing",
			PrimaryKey:  "id_baggage_type",
			Fields: []FieldDef{
				autoKey("id_baggage_type"),
				{Name: "type_name", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 50, Choices: BaggageTypes},
				{Name: "max_weight_kg", Type: FieldTypeDecimal, Required: true, Precision: 5, Scale: 2, NonNegative: true},
				{Name: "description", Type: FieldTypeText, Nullable: true},
				{Name: "base_price", Type: FieldTypeDecimal, Required: true, Precision: 6, Scale: 2, NonNegative: true},
			},
			DisplayFields: []string{"id_baggage_type", "type_name", "max_weight_kg", "description", "base_price"},
			OptionLabel:   labelColumn("type_name"),
		},
		{
			Kind:        KindBaggage,
			Table:       "baggage",
			Description: "Checked baggage items",
			PrimaryKey:  "id_baggage",
			Fields: []FieldDef{
				autoKey("id_baggage"),
				{Name: "ticket_id", Type: FieldTypeInteger, Required: true, Ref: KindTicket, OnDelete: OnDeleteCascade},
				{Name: "baggage_type_id", Type: FieldTypeInteger, Required: true, Ref: KindBaggageType, OnDelete: OnDeleteCascade},
				{Name: "weight_kg", Type: FieldTypeDecimal, Required: true, Precision: 5, Scale: 2, NonNegative: true},
				{Name: "baggage_tag", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 12},
				{Name: "status", Type: FieldTypeString, Required: true, MaxLength: 20, Choices: BaggageStatuses, DefaultValue: "REGISTERED"},
				{Name: "registered_at", Type: FieldTypeTimestamp, AutoNow: true},
			},
			DisplayFields: []string{"id_baggage", "ticket_id", "baggage_type_id", "weight_kg", "baggage_tag", "status", "registered_at"},
			OptionLabel:   labelColumn("baggage_tag"),
		},
		{
			Kind:        KindAuditLog,
			Table:       "audit_log",
			Description: "Append-only change history",
			PrimaryKey:  "id_audit",
			ReadOnly:    true,
			Fields: []FieldDef{
				autoKey("id_audit"),
				{Name: "table_name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "record_id", Type: FieldTypeInteger, Nullable: true},
				{Name: "record_key", Type: FieldTypeString, Required: true, MaxLength: 64},
				{Name: "operation", Type: FieldTypeString, Required: true, MaxLength: 10, Choices: AuditOperations},
				{Name: "old_data", Type: FieldTypeJSON, Nullable: true},
				{Name: "new_data", Type: FieldTypeJSON, Nullable: true},
				{Name: "changed_by", Type: FieldTypeInteger, Nullable: true, Ref: KindAccount, OnDelete: OnDeleteSetNull},
				{Name: "changed_at", Type: FieldTypeTimestamp, AutoNow: true},
			},
			Indexes: []IndexDef{
				{Name: "idx_audit_log_table_record", Columns: []string{"table_name", "record_key"}},
			},
			DisplayFields: []string{"id_audit", "table_name", "record_id", "operation", "changed_by", "changed_at", "old_data", "new_data"},
			OptionLabel:   labelColumn("id_audit"),
		},
	}
}
