package validation

// ValidateDeviceName validates the device label of a key issuance or
// deactivation request.
func ValidateDeviceName(deviceName string) []FieldError {
	var errs []FieldError
	if deviceName == "" {
		return required(errs, "device_name", deviceName)
	}
	return maxLen(errs, "device_name", deviceName, MaxDeviceNameLen)
}
