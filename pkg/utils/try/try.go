package try

// Fataler is something which can stop the world with Fatal.
//
// *testing.T and *log.Logger are Fatalers.
type Fataler interface {
	Fatal(...any)
}

// Either is a pair of a value and an error, handled as a unit.
//
// Either is "ok" when the error is nil. Otherwise the value is not valid.
type Either[T any] interface {
	// Get returns (value, nil) for ok, or (zero-value, error).
	Get() (T, error)

	// OrFatal returns the value if ok.
	//
	// Otherwise, it calls ftl.Fatal(err).
	// When ftl has a Helper method (like *testing.T), Helper is called first.
	OrFatal(ftl Fataler) T

	// OrDefault returns the value if ok, or d otherwise.
	OrDefault(d T) T
}

// To wraps a result of function call into Either.
//
//	v := try.To(strconv.Atoi("42")).OrFatal(t)
func To[T any](ok T, ng error) Either[T] {
	if ng == nil {
		return tryOk[T]{ok}
	}
	return tryNg[T]{ng}
}

type tryOk[T any] struct {
	value T
}

type tryNg[T any] struct {
	err error
}

func (ok tryOk[T]) Get() (T, error) {
	return ok.value, nil
}

func (ng tryNg[T]) Get() (T, error) {
	return *new(T), ng.err
}

func (ok tryOk[T]) OrDefault(T) T {
	return ok.value
}

func (ng tryNg[T]) OrDefault(d T) T {
	return d
}

func (ok tryOk[T]) OrFatal(Fataler) T {
	return ok.value
}

func (ng tryNg[T]) OrFatal(ftl Fataler) T {
	if hlp, ok := ftl.(interface{ Helper() }); ok {
		hlp.Helper()
	}
	ftl.Fatal(ng.err)

	return *new(T)
}
