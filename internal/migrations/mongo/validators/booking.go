package validators

import "go.mongodb.org/mongo-driver/bson"

var dateRangeSchema = bson.M{
	"bsonType": "object",
	"required": []string{"start", "end"},
	"properties": bson.M{
		"start": bson.M{"bsonType": "date"},
		"end":   bson.M{"bsonType": "date"},
	},
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"code",
			"property_id",
			"guest_id",
			"range",
			"status",
			"guest_count",
			"total_price",
			"currency",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"code": bson.M{
				"bsonType":  "string",
				"minLength": 6,
				"maxLength": 16,
			},

			"property_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"guest_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"range": dateRangeSchema,

			"status": bson.M{
				"enum": []string{
					"pending_payment",
					"confirmed",
					"in_progress",
					"completed",
					"expired",
					"cancelled_by_guest",
					"cancelled_by_host",
				},
			},

			"guest_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  50,
			},

			"total_price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 3,
			},

			"hold_expires_at": bson.M{
				"bsonType": "date",
			},

			"payment_status": bson.M{
				"enum": []string{"pending", "successful", "failed"},
			},

			"cancelled_by": bson.M{
				"enum": []string{"guest", "host", "system"},
			},

			"cancel_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"late_payment_ids": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},

			"reminder_sent_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
