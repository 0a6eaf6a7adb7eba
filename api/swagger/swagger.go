package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinic Records API",
        "description": "School clinic records, approval workflow and alerting",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "PendingActions", "description": "Two-party approval of sensitive account changes"},
        {"name": "Alerts", "description": "Staff alert inbox"},
        {"name": "DiseaseThresholds", "description": "Weekly outbreak thresholds per disease"},
        {"name": "Students", "description": "Student registration and visit history"},
        {"name": "Users", "description": "Direct account administration"},
        {"name": "MedicalVisits", "description": "Clinic visit recording"}
    ],
    "paths": {
        "/pending-actions": {
            "get": {
                "tags": ["PendingActions"],
                "summary": "List pending actions",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated statuses"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["PendingActions"],
                "summary": "Submit an action for approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitPendingActionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pending-actions/{id}": {
            "get": {
                "tags": ["PendingActions"],
                "summary": "Get a pending action",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["PendingActions"],
                "summary": "Cancel your own pending action",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "403": {"description": "Not the requester", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pending-actions/{id}/approve": {
            "post": {
                "tags": ["PendingActions"],
                "summary": "Approve and execute a pending action",
                "description": "A failed side effect still approves the action; meta.warning explains why.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pending-actions/{id}/reject": {
            "post": {
                "tags": ["PendingActions"],
                "summary": "Reject a pending action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Notes missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List alerts visible to the caller",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/unread-count": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Count unread alerts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/read-all": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Mark every visible alert read",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}/read": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Mark an alert read",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}/resolve": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Resolve an alert",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "204": {"description": "Resolved"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}": {
            "delete": {
                "tags": ["Alerts"],
                "summary": "Delete an alert",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/disease-thresholds": {
            "get": {
                "tags": ["DiseaseThresholds"],
                "summary": "List disease thresholds",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["DiseaseThresholds"],
                "summary": "Create or update the threshold for a disease",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DiseaseThreshold"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/disease-thresholds/{id}/active": {
            "patch": {
                "tags": ["DiseaseThresholds"],
                "summary": "Enable or disable a threshold",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"isActive": {"type": "boolean"}}}}
                ],
                "responses": {
                    "204": {"description": "Updated"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/disease-thresholds/{id}": {
            "delete": {
                "tags": ["DiseaseThresholds"],
                "summary": "Delete a threshold",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/register": {
            "post": {
                "tags": ["Students"],
                "summary": "Register a student account directly",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate username or national id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/duplicates": {
            "get": {
                "tags": ["Students"],
                "summary": "List duplicate detections for a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/medical-visits": {
            "get": {
                "tags": ["Students", "MedicalVisits"],
                "summary": "List a student's clinic visits",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}/deactivate": {
            "post": {
                "tags": ["Users"],
                "summary": "Deactivate an account",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/users/{id}": {
            "delete": {
                "tags": ["Users"],
                "summary": "Delete an account",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "400": {"description": "Cannot delete yourself", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/medical-visits": {
            "post": {
                "tags": ["MedicalVisits"],
                "summary": "Record a clinic visit",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitPendingActionRequest": {
            "type": "object",
            "required": ["actionType", "actionData"],
            "properties": {
                "actionType": {"type": "string", "enum": ["REGISTER_STUDENT", "DEACTIVATE_USER", "DELETE_USER"]},
                "targetUserId": {"type": "string"},
                "actionData": {"type": "object"},
                "priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "PendingAction": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "actionType": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "priority": {"type": "string"},
                "requestedById": {"type": "string"},
                "targetUserId": {"type": "string"},
                "actionData": {"type": "object"},
                "reviewedById": {"type": "string"},
                "reviewNotes": {"type": "string"},
                "requestedAt": {"type": "string", "format": "date-time"},
                "reviewedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Alert": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "alertType": {"type": "string", "enum": ["OUTBREAK_SUSPECTED", "DUPLICATE_DETECTED", "DISEASE_TREND", "SYSTEM"]},
                "severity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "isRead": {"type": "boolean"},
                "isResolved": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "DiseaseThreshold": {
            "type": "object",
            "required": ["diseaseName", "casesPerWeek"],
            "properties": {
                "diseaseName": {"type": "string"},
                "casesPerWeek": {"type": "integer"},
                "isActive": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
