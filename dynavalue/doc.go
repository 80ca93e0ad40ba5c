/*
Package dynavalue converts between Go values and DynamoDB attribute values
for schemaless (map-based) items.

Coercion always represents numbers as exact decimal strings built from the
value's own textual form, never from its binary floating representation, so a
price of 19.99 is stored and compared as "19.99" rather than
"19.989999999999998". On the way back out, numeric attributes decode to
json.Number for the same reason.

An optional explicit type hint ("N", "S" or "BOOL") overrides auto-detection:

	av, err := dynavalue.CoerceTyped("42", "N") // numeric attribute from a string
	av, err := dynavalue.Coerce(19.99)          // auto-detected numeric
*/
package dynavalue
