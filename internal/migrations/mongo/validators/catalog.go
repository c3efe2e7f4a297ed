package validators

import "go.mongodb.org/mongo-driver/bson"

var weekdaysSchema = bson.M{
	"bsonType": []string{"array", "null"},
	"items": bson.M{
		"bsonType": []string{"int", "long"},
		"minimum":  0,
		"maximum":  6,
	},
}

var PropertyValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"base_price"},
		"additionalProperties": true,
		"properties": bson.M{
			"title":      bson.M{"bsonType": "string", "maxLength": 200},
			"time_zone":  bson.M{"bsonType": "string"},
			"base_price": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"currency":   bson.M{"bsonType": "string", "minLength": 3, "maxLength": 3},
			"cancellation_policy": bson.M{
				"enum": []string{"", "flexible", "moderate", "strict"},
			},
			"max_guests": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}

var CalendarSettingsValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"additionalProperties": true,
		"properties": bson.M{
			"default_price":              bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"advance_notice_days":        bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 365},
			"booking_window_days":        bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 1095},
			"allowed_check_in_weekdays":  weekdaysSchema,
			"allowed_check_out_weekdays": weekdaysSchema,
			"auto_apply_seasonal":        bson.M{"bsonType": "bool"},
		},
	},
}

var SeasonalRateValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"property_id", "range", "price_per_night", "priority", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"property_id":     bson.M{"bsonType": "string", "minLength": 1},
			"range":           dateRangeSchema,
			"price_per_night": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"min_nights":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 365},
			"max_nights":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 365},
			"priority":        bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 100},
			"description":     bson.M{"bsonType": "string", "maxLength": 255},
			"color_code":      bson.M{"bsonType": "string"},
			"created_at":      bson.M{"bsonType": "date"},
		},
	},
}
