package schema

import (
	"fmt"

	"github.com/spf13/cast"
)

// CoralTablePrefix namespaces the coral-store tables inside a shared database.
const CoralTablePrefix = "store_"

func storeRef(name string, kind EntityKind) FieldDef {
	return FieldDef{Name: name, Type: FieldTypeInteger, Required: true, Ref: kind, OnDelete: OnDeleteRestrict}
}

func labelNumbered(prefix, col string) func(map[string]interface{}) string {
	return func(row map[string]interface{}) string {
		return fmt.Sprintf("%s #%s", prefix, cast.ToString(row[col]))
	}
}

// CoralSchemas returns fresh descriptors for the coral-store catalog.
func CoralSchemas() []*EntitySchema {
	return []*EntitySchema{
		{
			Kind:       KindCountry,
			Table:      CoralTablePrefix + "countries",
			PrimaryKey: "id_country",
			Fields: []FieldDef{
				autoKey("id_country"),
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 100},
				{Name: "code", Type: FieldTypeString, Nullable: true, MaxLength: 3},
			},
			DisplayFields: []string{"id_country", "name", "code"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindSea,
			Table:      CoralTablePrefix + "seas",
			PrimaryKey: "id_sea",
			Fields: []FieldDef{
				autoKey("id_sea"),
				{Name: "name", Type: FieldTypeString, Nullable: true, MaxLength: 100},
			},
			DisplayFields: []string{"id_sea", "name"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindReef,
			Table:      CoralTablePrefix + "reefs",
			PrimaryKey: "id_reef",
			Fields: []FieldDef{
				autoKey("id_reef"),
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 100},
				{Name: "description", Type: FieldTypeText, Nullable: true},
				{Name: "coordinate", Type: FieldTypeText, Nullable: true},
				storeRef("id_country", KindCountry),
				storeRef("id_sea", KindSea),
			},
			DisplayFields: []string{"id_reef", "name", "id_country", "id_sea"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindCategory,
			Table:      CoralTablePrefix + "categories",
			PrimaryKey: "id_category",
			Fields: []FieldDef{
				autoKey("id_category"),
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 100},
				{Name: "description", Type: FieldTypeText, Nullable: true},
			},
			DisplayFields: []string{"id_category", "name"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindCoral,
			Table:      CoralTablePrefix + "corals",
			PrimaryKey: "id_coral",
			Fields: []FieldDef{
				autoKey("id_coral"),
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 100},
				{Name: "scientific_name", Type: FieldTypeString, Nullable: true, MaxLength: 100},
				{Name: "description", Type: FieldTypeText, Nullable: true},
				{Name: "age", Type: FieldTypeInteger, Nullable: true, NonNegative: true},
				storeRef("id_reef", KindReef),
				storeRef("id_category", KindCategory),
			},
			DisplayFields: []string{"id_coral", "name", "scientific_name", "age", "id_reef", "id_category"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindOrderStatus,
			Table:      CoralTablePrefix + "order_statuses",
			PrimaryKey: "id_status",
			Fields: []FieldDef{
				autoKey("id_status"),
				{Name: "name", Type: FieldTypeString, Nullable: true, MaxLength: 50},
			},
			DisplayFields: []string{"id_status", "name"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindStoreAccount,
			Table:      CoralTablePrefix + "accounts",
			PrimaryKey: "id_account",
			Fields: []FieldDef{
				autoKey("id_account"),
				{Name: "login", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 50},
				{Name: "password", Type: FieldTypeString, Required: true, MaxLength: 50, Secret: true},
			},
			DisplayFields: []string{"id_account", "login"},
			OptionLabel:   labelColumn("login"),
		},
		{
			Kind:       KindStoreRole,
			Table:      CoralTablePrefix + "roles",
			PrimaryKey: "id_role",
			Fields: []FieldDef{
				autoKey("id_role"),
				{Name: "name", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 50},
			},
			DisplayFields: []string{"id_role", "name"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindStoreUser,
			Table:      CoralTablePrefix + "users",
			PrimaryKey: "id_user",
			Fields: []FieldDef{
				autoKey("id_user"),
				{Name: "name", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "lastname", Type: FieldTypeString, Required: true, MaxLength: 50},
				{Name: "email", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 100},
				{Name: "phone", Type: FieldTypeString, Nullable: true, MaxLength: 20, Pattern: PatternPhone},
				storeRef("id_role", KindStoreRole),
				storeRef("id_account", KindStoreAccount),
			},
			DisplayFields: []string{"id_user", "name", "lastname", "email", "phone", "id_role", "id_account"},
			OptionLabel:   labelFullName("name", "lastname"),
		},
		{
			Kind:       KindOrder,
			Table:      CoralTablePrefix + "orders",
			PrimaryKey: "id_order",
			Fields: []FieldDef{
				autoKey("id_order"),
				storeRef("id_user", KindStoreUser),
				{Name: "order_date", Type: FieldTypeTimestamp, Nullable: true},
				storeRef("id_status", KindOrderStatus),
			},
			DisplayFields: []string{"id_order", "id_user", "order_date", "id_status"},
			OptionLabel:   labelNumbered("Order", "id_order"),
		},
		{
			Kind:       KindOrderItem,
			Table:      CoralTablePrefix + "order_items",
			PrimaryKey: "id_item",
			Fields: []FieldDef{
				autoKey("id_item"),
				storeRef("id_order", KindOrder),
				storeRef("id_coral", KindCoral),
				{Name: "price", Type: FieldTypeDecimal, Required: true, Precision: 10, Scale: 2, NonNegative: true},
			},
			DisplayFields: []string{"id_item", "id_order", "id_coral", "price"},
			OptionLabel:   labelNumbered("Order item", "id_item"),
		},
		{
			Kind:       KindCertificateStatus,
			Table:      CoralTablePrefix + "certificate_statuses",
			PrimaryKey: "id_status",
			Fields: []FieldDef{
				autoKey("id_status"),
				{Name: "name", Type: FieldTypeString, Nullable: true, MaxLength: 50},
			},
			DisplayFields: []string{"id_status", "name"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindCertificateType,
			Table:      CoralTablePrefix + "certificate_types",
			PrimaryKey: "id_type",
			Fields: []FieldDef{
				autoKey("id_type"),
				{Name: "name", Type: FieldTypeString, Required: true, Unique: true, MaxLength: 100},
				{Name: "description", Type: FieldTypeText, Nullable: true},
				{Name: "price", Type: FieldTypeDecimal, Nullable: true, Precision: 10, Scale: 2, NonNegative: true},
			},
			DisplayFields: []string{"id_type", "name", "price"},
			OptionLabel:   labelColumn("name"),
		},
		{
			Kind:       KindCertificate,
			Table:      CoralTablePrefix + "certificates",
			PrimaryKey: "id_certificate",
			Fields: []FieldDef{
				autoKey("id_certificate"),
				storeRef("id_order", KindOrder),
				storeRef("id_coral", KindCoral),
				{Name: "certificate_number", Type: FieldTypeString, Nullable: true, MaxLength: 50},
				{Name: "issue_date", Type: FieldTypeDate, Nullable: true},
				storeRef("id_status", KindCertificateStatus),
				storeRef("id_type", KindCertificateType),
			},
			DisplayFields: []string{"id_certificate", "certificate_number", "id_order", "id_coral", "issue_date", "id_status", "id_type"},
			OptionLabel: func(row map[string]interface{}) string {
				if n := cast.ToString(row["certificate_number"]); n != "" {
					return n
				}
				return labelNumbered("Certificate", "id_certificate")(row)
			},
		},
		{
			Kind:       KindReview,
			Table:      CoralTablePrefix + "reviews",
			PrimaryKey: "id_review",
			Fields: []FieldDef{
				autoKey("id_review"),
				storeRef("id_user", KindStoreUser),
				storeRef("id_coral", KindCoral),
				{Name: "rating", Type: FieldTypeInteger, Required: true, NonNegative: true},
				{Name: "review_text", Type: FieldTypeText, Nullable: true},
				{Name: "review_date", Type: FieldTypeDate, Nullable: true},
			},
			DisplayFields: []string{"id_review", "id_user", "id_coral", "rating", "review_date"},
			OptionLabel:   labelNumbered("Review", "id_review"),
		},
	}
}
