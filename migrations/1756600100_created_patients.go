package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pat1x8k2m4qw9z0",
			"name": "patients",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "pat_first_name",
					"name": "first_name",
					"type": "text",
					"required": true,
					"system": false
				},
				{
					"id": "pat_last_name",
					"name": "last_name",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "pat_phone",
					"name": "phone",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "pat_email",
					"name": "email",
					"type": "email",
					"required": false,
					"system": false
				},
				{
					"id": "pat_notes",
					"name": "notes",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "pat_created",
					"name": "created",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": false,
					"system": false
				},
				{
					"id": "pat_updated",
					"name": "updated",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": true,
					"system": false
				}
			],
			"indexes": [],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pat1x8k2m4qw9z0")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
