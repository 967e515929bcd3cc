package cluster

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/raft"
)

const (
	transportPool    = 3
	transportTimeout = 10 * time.Second
)

// newNetworkTransport abre el transporte TCP de raft, con mTLS cuando la
// config lo pide. Todos los nodos comparten la misma CA.
func newNetworkTransport(o NodeOptions) (*raft.NetworkTransport, error) {
	if !o.RaftTLSEnable {
		t, err := raft.NewTCPTransport(o.RaftAddr, nil, transportPool, transportTimeout, os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("tcp transport %s: %w", o.RaftAddr, err)
		}
		return t, nil
	}

	serverTLS, clientTLS, err := mutualTLS(o.RaftTLSCertFile, o.RaftTLSKeyFile, o.RaftTLSCAFile, o.RaftTLSServerName)
	if err != nil {
		return nil, fmt.Errorf("raft tls: %w", err)
	}
	ln, err := tls.Listen("tcp", o.RaftAddr, serverTLS)
	if err != nil {
		return nil, fmt.Errorf("tls listen %s: %w", o.RaftAddr, err)
	}
	return raft.NewNetworkTransport(&tlsLayer{Listener: ln, dialCfg: clientTLS}, transportPool, transportTimeout, os.Stdout), nil
}

// mutualTLS arma las configs de server y client a partir del mismo par de
// certificados: cada nodo es ambas cosas.
func mutualTLS(certFile, keyFile, caFile, serverName string) (server, client *tls.Config, err error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("key pair: %w", err)
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, nil, fmt.Errorf("ca: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, nil, errors.New("ca: no certificates found")
	}
	certs := []tls.Certificate{cert}
	server = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: certs,
		ClientCAs:    roots,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}
	client = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: certs,
		RootCAs:      roots,
		ServerName:   serverName,
	}
	return server, client, nil
}

// tlsLayer implementa raft.StreamLayer sobre un listener TLS.
type tlsLayer struct {
	net.Listener
	dialCfg *tls.Config
}

func (l *tlsLayer) Dial(address raft.ServerAddress, timeout time.Duration) (net.Conn, error) {
	return tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", string(address), l.dialCfg)
}
