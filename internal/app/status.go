package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/bytedance/sonic"
)

// statusReport is the body served on /status.
type statusReport struct {
	Connection        string         `json:"connection"`
	ReconnectAttempts int            `json:"reconnect_attempts"`
	Scenario          string         `json:"scenario"`
	Busy              bool           `json:"busy"`
	Parameters        map[string]any `json:"parameters"`
	Tensors           []string       `json:"tensors"`
	SelectedTensor    string         `json:"selected_tensor,omitempty"`
	Error             string         `json:"error,omitempty"`
	Notice            string         `json:"notice,omitempty"`
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
	st := a.session.Snapshot()

	tensors := make([]string, 0, len(st.Tensors))
	for id := range st.Tensors {
		tensors = append(tensors, id)
	}
	slices.Sort(tensors)

	body, err := sonic.ConfigStd.Marshal(statusReport{
		Connection:        st.Connection.String(),
		ReconnectAttempts: a.conn.Attempts(),
		Scenario:          st.CurrentScenarioID,
		Busy:              st.Busy(),
		Parameters:        st.Parameters,
		Tensors:           tensors,
		SelectedTensor:    st.SelectedTensorID,
		Error:             st.Error,
		Notice:            st.Notice,
	})
	if err != nil {
		a.logger.Error("Failed to encode status", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (a *App) statusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /status", a.statusHandler)
	return mux
}

// startStatusServer binds the status server and serves it in the
// background. It returns the bound address.
func (a *App) startStatusServer(port int) (string, error) {
	a.logger.Debug("Configuring status server.")
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("failed to start status server: %w", err)
	}
	a.httpServer = &http.Server{
		Handler:           a.statusMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	addr := ln.Addr().String()
	go func() {
		a.logger.Info("🩺 Status server starting", "address", addr)
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return addr, nil
}

func (a *App) closeStatusServer() error {
	if a.httpServer == nil {
		a.logger.Debug("Status server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down status server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	a.httpServer = nil
	a.logger.Debug("Status server shut down gracefully.")
	return nil
}
