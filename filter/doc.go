/*
Package filter compiles client-friendly JSON-style filter maps into DynamoDB
expression strings with placeholder tables, without requiring callers to
understand DynamoDB expression syntax.

A Spec maps attribute names to conditions. Three condition shapes are
recognized, in this order:

 1. A map containing "operator": {"operator": "ge", "value": 19.99, "type": "N"}
 2. A map with exactly one key, read as operator → operand: {"gt": 18}
 3. Anything else: shorthand for equality, e.g. "active" or
    {"value": 19.99, "type": "N"}

Supported operators: eq, ne, lt, le, gt, ge, between (two-element list), in
(list), contains, begins_with, exists, not_exists. Multiple attributes are
combined with AND; there is no OR support.

Examples:

	filter.Spec{"status": "active", "age": map[string]any{"gt": 18}}
	filter.Spec{"name": map[string]any{"begins_with": "John"}}
	filter.Spec{"score": map[string]any{"between": []any{10, 20}}}
	filter.Spec{"category": map[string]any{"in": []any{"tech", "science"}}}
	filter.Spec{"deleted_at": map[string]any{"not_exists": true}}

The same compiled form serves as a read-time FilterExpression and as a
write-time ConditionExpression for conditional updates.
*/
package filter
