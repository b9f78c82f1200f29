package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "alt4d8e2f6a9c3b",
			"name": "alert_templates",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "alt_key",
					"name": "key",
					"type": "text",
					"required": true,
					"system": false
				},
				{
					"id": "alt_name",
					"name": "name",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "alt_message_template",
					"name": "message_template",
					"type": "text",
					"required": true,
					"system": false
				},
				{
					"id": "alt_created",
					"name": "created",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": false,
					"system": false
				},
				{
					"id": "alt_updated",
					"name": "updated",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": true,
					"system": false
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX idx_alert_templates_key ON alert_templates (key)"
			],
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
		collection, err := app.FindCollectionByNameOrId("alt4d8e2f6a9c3b")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
