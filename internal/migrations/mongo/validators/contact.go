package validators

import "go.mongodb.org/mongo-driver/bson"

var ContactValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "phone_numbers", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":  bson.M{"bsonType": "objectId"},
			"name": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 200},
			"phone_numbers": bson.M{
				"bsonType": "array",
				"maxItems": 100,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"number"},
					"properties": bson.M{
						"id":     bson.M{"bsonType": "string"},
						"label":  bson.M{"bsonType": "string"},
						"number": bson.M{"bsonType": "string"},
					},
				},
			},
			"normalized_numbers": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
