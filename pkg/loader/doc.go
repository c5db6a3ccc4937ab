// Package loader builds mocks from declarative YAML or JSON files.
//
// A file holds one mock, a list of mocks, or a mapping with a mocks key:
//
//	mocks:
//	  - name: list users
//	    request:
//	      method: GET
//	      url: https://api.example.com/users
//	      headers:
//	        Accept: application/json
//	    times: 2
//	    response:
//	      status: 200
//	      headers:
//	        - {name: X-Hello, value: a}
//	        - {name: X-Hello, value: b}
//	      json: {users: [alice, bob]}
//
// Response headers are a list so repeated names keep their order. ${VAR}
// and ${VAR:-default} references are expanded before parsing. Entries given
// to LoadFiles may be ** globs.
package loader
