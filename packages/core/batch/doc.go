// Package batch loads pollhttp batch files.
//
// A batch file is YAML:
//
//	name: users api
//	env: .env
//	waitFor:
//	  url: http://localhost:8080/health
//	  timeout: 10s
//	variables:
//	  baseUrl: http://localhost:8080
//	requests:
//	  - name: login
//	    method: POST
//	    url: "{{baseUrl}}/login"
//	    json: {user: admin, password: "{{$ADMIN_PASSWORD}}"}
//	    wait: true
//	    capture:
//	      token: body.token
//	    expect:
//	      status: 200
//	  - name: list
//	    url: "{{baseUrl}}/users"
//	    auth: {bearer: "{{login.token}}"}
//	    expect:
//	      json: {"0.id": 1}
//	      assert:
//	        - body length 2
//
// Templates are resolved when a request is built, so captures from requests
// that finished earlier are visible to later ones.
package batch
