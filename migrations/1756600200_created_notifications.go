package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "ntf7b3c9d1e5f2a",
			"name": "notifications",
			"type": "base",
			"system": false,
			"fields": [
				{
					"id": "ntf_entry_id",
					"name": "entry_id",
					"type": "text",
					"required": true,
					"system": false
				},
				{
					"id": "ntf_patient",
					"name": "patient",
					"type": "relation",
					"required": false,
					"system": false,
					"collectionId": "pat1x8k2m4qw9z0",
					"cascadeDelete": false,
					"maxSelect": 1
				},
				{
					"id": "ntf_kind",
					"name": "kind",
					"type": "select",
					"required": true,
					"system": false,
					"maxSelect": 1,
					"values": [
						"check_in",
						"almost_your_turn",
						"your_turn",
						"wait_update",
						"custom"
					]
				},
				{
					"id": "ntf_phone",
					"name": "phone",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "ntf_message",
					"name": "message",
					"type": "text",
					"required": false,
					"system": false
				},
				{
					"id": "ntf_status",
					"name": "status",
					"type": "select",
					"required": true,
					"system": false,
					"maxSelect": 1,
					"values": [
						"sent",
						"mock_sent",
						"failed"
					]
				},
				{
					"id": "ntf_created",
					"name": "created",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": false,
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
		collection, err := app.FindCollectionByNameOrId("ntf7b3c9d1e5f2a")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
