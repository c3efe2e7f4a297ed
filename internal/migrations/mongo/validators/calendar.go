package validators

import "go.mongodb.org/mongo-driver/bson"

var CalendarBlockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"property_id", "range", "kind", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"property_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"range": dateRangeSchema,
			"kind": bson.M{
				"enum": []string{"confirmed", "hold", "manual_block", "maintenance"},
			},
			"owner_booking_id": bson.M{
				"bsonType": "string",
			},
			"reason": bson.M{
				"bsonType":  "string",
				"maxLength": 255,
			},
			"color_code": bson.M{
				"bsonType": "string",
				"pattern":  "^#([0-9a-f]{3}|[0-9a-f]{6})$",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var PropertyLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"owner", "expires_at", "created_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"owner":      bson.M{"bsonType": "string", "minLength": 1},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
