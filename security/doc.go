// Package security holds transport security settings for outbound provider
// connections.
//
// A zero TLSConfig means "use the system defaults": Build returns nil and the
// HTTP transport keeps its stock TLS behaviour. Setting a CA file lets the
// local provider talk to an inference server behind a private certificate
// authority; a cert and key pair enables mutual TLS.
//
//	llm:
//	  local:
//	    endpoint: https://inference.internal:8443
//	    tls:
//	      ca_file: /etc/quizgen/ca.pem
package security
