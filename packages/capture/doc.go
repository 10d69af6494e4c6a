// Package capture pulls values out of completed responses so later requests
// in a batch can refer to them as {{requestName.captureName}}.
//
// A capture expression names its source:
//
//	status                 the response code
//	duration               the elapsed time in milliseconds
//	outcome                the engine status, e.g. "Completed"
//	header Content-Type    one of the parsed headers
//	body                   the whole body, decoded when it is JSON
//	body.data.token        a gjson path into a JSON body
package capture
