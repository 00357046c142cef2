package mocks

//go:generate mockgen -destination=./mock_history.go -package=mocks github.com/rxtech-lab/argo-signal/internal/history Store
//go:generate mockgen -destination=./mock_distributor.go -package=mocks github.com/rxtech-lab/argo-signal/internal/distribution Distributor
//go:generate mockgen -destination=./mock_signal_store.go -package=mocks github.com/rxtech-lab/argo-signal/internal/store SignalStore,RejectionRecorder
