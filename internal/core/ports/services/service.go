package services

// ServiceContainer holds instances of all the application services.
// The consumer uses the dispatcher; the ops handlers use the reader.
type ServiceContainer struct {
	Dispatcher   DispatcherSvc
	Converter    CurrencyConverterSvc
	Transactions TransactionReaderSvc
}
