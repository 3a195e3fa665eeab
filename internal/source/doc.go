// Package source contains the clients the executor uses to query backend
// sources. Every source speaks GraphQL and answers with a {"data": ...}
// envelope.
package source
