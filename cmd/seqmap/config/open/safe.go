package open

// WriteSafeFile writes content into a file created by NewSafeFile.
func WriteSafeFile(filepath string, content []byte) error {
	f, err := NewSafeFile(filepath)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
